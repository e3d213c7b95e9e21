package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asocialdev/asocial/internal/store"
	"github.com/asocialdev/asocial/pkg/models"
)

type stubJobStore struct {
	jobs       map[uuid.UUID]*models.Job
	lastFilter store.JobFilter
}

func newStubJobStore() *stubJobStore {
	return &stubJobStore{jobs: map[uuid.UUID]*models.Job{}}
}

func (s *stubJobStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (s *stubJobStore) ListJobs(_ context.Context, filter store.JobFilter) ([]*models.Job, error) {
	s.lastFilter = filter
	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func TestListJobs_FiltersByStatus(t *testing.T) {
	st := newStubJobStore()
	done := &models.Job{ID: uuid.New(), Status: models.JobStatusDone}
	pending := &models.Job{ID: uuid.New(), Status: models.JobStatusPending}
	st.jobs[done.ID] = done
	st.jobs[pending.ID] = pending

	h := NewListJobsHandler(st)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=done", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobStatusDone, st.lastFilter.Status)

	var jobs []*models.Job
	decodeData(t, rec, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, done.ID, jobs[0].ID)
}

func TestListJobs_RejectsUnknownStatus(t *testing.T) {
	h := NewListJobsHandler(newStubJobStore())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=sideways", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))
}

func TestGetJob_Found(t *testing.T) {
	st := newStubJobStore()
	job := &models.Job{ID: uuid.New(), Status: models.JobStatusFailed}
	st.jobs[job.ID] = job

	h := NewGetJobHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	h(rec, withURLParam(req, "jobID", job.ID.String()))

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Job
	decodeData(t, rec, &got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	h := NewGetJobHandler(newStubJobStore())

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String(), nil)
	rec := httptest.NewRecorder()
	h(rec, withURLParam(req, "jobID", id.String()))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", errorCode(t, rec))
}

func TestGetJob_BadID(t *testing.T) {
	h := NewGetJobHandler(newStubJobStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h(rec, withURLParam(req, "jobID", "not-a-uuid"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
