package handler

import (
	"net/http"
	"strconv"

	"github.com/asocialdev/asocial/internal/activity"
	"github.com/asocialdev/asocial/internal/api/response"
)

// NewActivityHandler returns the handler for GET /api/v1/activity:
// recent dispatch outcomes, newest first. Supports ?limit=.
func NewActivityHandler(feed activity.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}

		entries, err := feed.Recent(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if entries == nil {
			entries = []activity.Entry{}
		}

		response.JSON(w, entries)
	}
}
