package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asocialdev/asocial/internal/api"
	"github.com/asocialdev/asocial/internal/api/response"
)

func TestRouter_RoutesToHandlers(t *testing.T) {
	var hitPath string
	mark := func(path string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hitPath = path
			response.JSON(w, map[string]string{"handler": path})
		}
	}

	router := api.NewRouter(api.Dependencies{
		HealthHandler:         mark("health"),
		CreatePostHandler:     mark("create-post"),
		ListPostsHandler:      mark("list-posts"),
		SchedulePostHandler:   mark("schedule"),
		UpsertPlatformHandler: mark("upsert-platform"),
		ListPlatformsHandler:  mark("list-platforms"),
		ListJobsHandler:       mark("list-jobs"),
		GetJobHandler:         mark("get-job"),
		ActivityHandler:       mark("activity"),
	})
	server := httptest.NewServer(router)
	defer server.Close()

	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/health", "health"},
		{http.MethodPost, "/api/v1/posts", "create-post"},
		{http.MethodGet, "/api/v1/posts", "list-posts"},
		{http.MethodPost, "/api/v1/posts/4e51f1e6-54c8-4c05-a02d-5f0dd154a9a7/schedule", "schedule"},
		{http.MethodPut, "/api/v1/platforms/mastodon", "upsert-platform"},
		{http.MethodGet, "/api/v1/platforms", "list-platforms"},
		{http.MethodGet, "/api/v1/jobs", "list-jobs"},
		{http.MethodGet, "/api/v1/jobs/4e51f1e6-54c8-4c05-a02d-5f0dd154a9a7", "get-job"},
		{http.MethodGet, "/api/v1/activity", "activity"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			hitPath = ""
			req, err := http.NewRequest(tc.method, server.URL+tc.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.want, hitPath)
		})
	}
}

func TestRouter_MissingHandlerIs501(t *testing.T) {
	router := api.NewRouter(api.Dependencies{})
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestRouter_UnknownRouteIs404(t *testing.T) {
	router := api.NewRouter(api.Dependencies{})
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v2/nothing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
