package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asocialdev/asocial/internal/api/response"
	"github.com/asocialdev/asocial/internal/platform"
	"github.com/asocialdev/asocial/pkg/models"
)

// PlatformStore is what the platform handlers need from the store.
type PlatformStore interface {
	GetDefaultUser(ctx context.Context) (*models.User, error)
	UpsertPlatform(ctx context.Context, platform *models.Platform) (*models.Platform, error)
	ListPlatforms(ctx context.Context, userID uuid.UUID) ([]*models.Platform, error)
}

// CredentialValidator checks a credentials document against the named
// adapter without performing any network calls: constructing the client
// decodes and validates the document. Satisfied by registry.Registry.
type CredentialValidator interface {
	Supported(name string) bool
	Client(name string, credentials json.RawMessage, apiURL string) (platform.Client, error)
}

// NewUpsertPlatformHandler returns the handler for
// PUT /api/v1/platforms/{name}. Credentials are validated structurally
// (decoded by the adapter) before the row is written, so a platform row
// never holds a document its adapter cannot use.
func NewUpsertPlatformHandler(st PlatformStore, validator CredentialValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !validator.Supported(name) {
			response.Error(w, http.StatusBadRequest, "UNKNOWN_PLATFORM",
				"No adapter is registered for platform "+name, nil)
			return
		}

		var req struct {
			Credentials json.RawMessage `json:"credentials"`
			APIURL      *string         `json:"api_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.Credentials) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "credentials is required", nil)
			return
		}

		apiURL := ""
		if req.APIURL != nil {
			apiURL = *req.APIURL
		}
		if _, err := validator.Client(name, req.Credentials, apiURL); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_CREDENTIALS", err.Error(), nil)
			return
		}

		user, err := st.GetDefaultUser(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		saved, err := st.UpsertPlatform(r.Context(), &models.Platform{
			ID:          uuid.New(),
			UserID:      user.ID,
			Name:        name,
			Credentials: req.Credentials,
			APIURL:      req.APIURL,
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.JSON(w, saved)
	}
}

// NewListPlatformsHandler returns the handler for GET /api/v1/platforms.
// Credentials never leave the server; the model's JSON tags keep them
// out of the payload.
func NewListPlatformsHandler(st PlatformStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := st.GetDefaultUser(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		platforms, err := st.ListPlatforms(r.Context(), user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if platforms == nil {
			platforms = []*models.Platform{}
		}

		response.JSON(w, platforms)
	}
}
