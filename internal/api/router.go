package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/asocialdev/asocial/internal/api/middleware"
	"github.com/asocialdev/asocial/internal/api/response"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler http.HandlerFunc

	CreatePostHandler   http.HandlerFunc
	ListPostsHandler    http.HandlerFunc
	SchedulePostHandler http.HandlerFunc

	UpsertPlatformHandler http.HandlerFunc
	ListPlatformsHandler  http.HandlerFunc

	ListJobsHandler http.HandlerFunc
	GetJobHandler   http.HandlerFunc

	ActivityHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all
// routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/posts", orNotImplemented(deps.CreatePostHandler))
	r.Get("/api/v1/posts", orNotImplemented(deps.ListPostsHandler))
	r.Post("/api/v1/posts/{postID}/schedule", orNotImplemented(deps.SchedulePostHandler))

	r.Put("/api/v1/platforms/{name}", orNotImplemented(deps.UpsertPlatformHandler))
	r.Get("/api/v1/platforms", orNotImplemented(deps.ListPlatformsHandler))

	r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

	r.Get("/api/v1/activity", orNotImplemented(deps.ActivityHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
