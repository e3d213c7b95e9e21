package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asocialdev/asocial/internal/api/response"
	"github.com/asocialdev/asocial/internal/store"
	"github.com/asocialdev/asocial/pkg/models"
)

// PostStore is what the post handlers need from the store.
type PostStore interface {
	GetDefaultUser(ctx context.Context) (*models.User, error)
	CreatePost(ctx context.Context, post *models.Post) error
	ListPosts(ctx context.Context, userID uuid.UUID) ([]*models.Post, error)
	GetPlatform(ctx context.Context, userID uuid.UUID, name string) (*models.Platform, error)
	SchedulePost(ctx context.Context, postID uuid.UUID, scheduledFor time.Time, platformIDs []uuid.UUID) ([]*models.Job, error)
}

// PlatformChecker reports whether a platform name has a registered
// adapter. Satisfied by registry.Registry.
type PlatformChecker interface {
	Supported(name string) bool
}

// NewCreatePostHandler returns the handler for POST /api/v1/posts. The
// new post is always a draft; scheduling is a separate operation.
func NewCreatePostHandler(st PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content    string   `json:"content"`
			MediaPaths []string `json:"media_paths"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.Content) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}

		user, err := st.GetDefaultUser(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		post := &models.Post{
			ID:         uuid.New(),
			UserID:     user.ID,
			Content:    req.Content,
			Status:     models.PostStatusDraft,
			MediaPaths: req.MediaPaths,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if err := st.CreatePost(r.Context(), post); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.Created(w, post)
	}
}

// NewListPostsHandler returns the handler for GET /api/v1/posts.
func NewListPostsHandler(st PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := st.GetDefaultUser(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		posts, err := st.ListPosts(r.Context(), user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if posts == nil {
			posts = []*models.Post{}
		}

		response.JSON(w, posts)
	}
}

// NewSchedulePostHandler returns the handler for
// POST /api/v1/posts/{postID}/schedule. The platform names are resolved
// and validated up front so an unknown name rejects the whole request
// before any row is written.
func NewSchedulePostHandler(st PostStore, platforms PlatformChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuid.Parse(chi.URLParam(r, "postID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "postID must be a valid UUID", nil)
			return
		}

		var req struct {
			ScheduledFor string   `json:"scheduled_for"`
			Platforms    []string `json:"platforms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.ScheduledFor == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "scheduled_for is required", nil)
			return
		}
		scheduledFor, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "scheduled_for must be a valid RFC3339 timestamp", nil)
			return
		}

		if len(req.Platforms) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "platforms must name at least one platform", nil)
			return
		}

		user, err := st.GetDefaultUser(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		platformIDs := make([]uuid.UUID, 0, len(req.Platforms))
		for _, name := range req.Platforms {
			if !platforms.Supported(name) {
				response.Error(w, http.StatusBadRequest, "UNKNOWN_PLATFORM",
					"No adapter is registered for platform "+name, nil)
				return
			}
			p, err := st.GetPlatform(r.Context(), user.ID, name)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					response.Error(w, http.StatusBadRequest, "PLATFORM_NOT_CONFIGURED",
						"Platform "+name+" has no stored credentials", nil)
					return
				}
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
				return
			}
			platformIDs = append(platformIDs, p.ID)
		}

		jobs, err := st.SchedulePost(r.Context(), postID, scheduledFor, platformIDs)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "POST_NOT_FOUND", "Post does not exist", nil)
			case errors.Is(err, store.ErrNotDraft):
				response.Error(w, http.StatusConflict, "ALREADY_SCHEDULED", "Post has already been scheduled", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, jobs)
	}
}
