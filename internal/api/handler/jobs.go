package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asocialdev/asocial/internal/api/response"
	"github.com/asocialdev/asocial/internal/store"
	"github.com/asocialdev/asocial/pkg/models"
)

// JobStore is what the job handlers need from the store.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, error)
}

var validJobStatuses = map[string]bool{
	models.JobStatusPending:    true,
	models.JobStatusProcessing: true,
	models.JobStatusDone:       true,
	models.JobStatusFailed:     true,
}

// NewListJobsHandler returns the handler for GET /api/v1/jobs. Supports
// ?status= and ?post_id= filters.
func NewListJobsHandler(st JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.JobFilter{Limit: 100}

		if status := r.URL.Query().Get("status"); status != "" {
			if !validJobStatuses[status] {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"status must be one of pending, processing, done, failed", nil)
				return
			}
			filter.Status = status
		}

		if postID := r.URL.Query().Get("post_id"); postID != "" {
			id, err := uuid.Parse(postID)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "post_id must be a valid UUID", nil)
				return
			}
			filter.PostID = id
		}

		jobs, err := st.ListJobs(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}

		response.JSON(w, jobs)
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := st.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job does not exist", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}
