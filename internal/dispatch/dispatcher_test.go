package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asocialdev/asocial/internal/activity"
	"github.com/asocialdev/asocial/internal/platform"
	"github.com/asocialdev/asocial/internal/store"
	"github.com/asocialdev/asocial/pkg/models"
)

// --- mocks ---

type outcomeWrite struct {
	ID        uuid.UUID
	Status    string
	LastError string
}

type mockStore struct {
	mu         sync.Mutex
	payload    *models.JobPayload
	payloadErr error
	claimed    []*models.Job
	claimErr   error
	writes     []outcomeWrite
	writeErr   error
}

func (s *mockStore) Ping(_ context.Context) error                                   { return nil }
func (s *mockStore) GetDefaultUser(_ context.Context) (*models.User, error)         { return nil, nil }
func (s *mockStore) CreatePost(_ context.Context, _ *models.Post) error             { return nil }
func (s *mockStore) GetPost(_ context.Context, _ uuid.UUID) (*models.Post, error)   { return nil, nil }
func (s *mockStore) ListPosts(_ context.Context, _ uuid.UUID) ([]*models.Post, error) {
	return nil, nil
}
func (s *mockStore) UpsertPlatform(_ context.Context, _ *models.Platform) (*models.Platform, error) {
	return nil, nil
}
func (s *mockStore) GetPlatform(_ context.Context, _ uuid.UUID, _ string) (*models.Platform, error) {
	return nil, nil
}
func (s *mockStore) ListPlatforms(_ context.Context, _ uuid.UUID) ([]*models.Platform, error) {
	return nil, nil
}
func (s *mockStore) SchedulePost(_ context.Context, _ uuid.UUID, _ time.Time, _ []uuid.UUID) ([]*models.Job, error) {
	return nil, nil
}
func (s *mockStore) GetJob(_ context.Context, _ uuid.UUID) (*models.Job, error) { return nil, nil }
func (s *mockStore) ListJobs(_ context.Context, _ store.JobFilter) ([]*models.Job, error) {
	return nil, nil
}

func (s *mockStore) ClaimNextJob(_ context.Context) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if len(s.claimed) == 0 {
		return nil, nil
	}
	job := s.claimed[0]
	s.claimed = s.claimed[1:]
	return job, nil
}

func (s *mockStore) GetJobPayload(_ context.Context, _ uuid.UUID) (*models.JobPayload, error) {
	if s.payloadErr != nil {
		return nil, s.payloadErr
	}
	return s.payload, nil
}

func (s *mockStore) MarkJobDelivered(_ context.Context, id uuid.UUID) error {
	return s.write(id, models.JobStatusDone, "")
}

func (s *mockStore) MarkJobFailed(_ context.Context, id uuid.UUID, lastError string) error {
	return s.write(id, models.JobStatusFailed, lastError)
}

func (s *mockStore) RequeueJob(_ context.Context, id uuid.UUID, lastError string) error {
	return s.write(id, models.JobStatusPending, lastError)
}

func (s *mockStore) write(id uuid.UUID, status, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, outcomeWrite{ID: id, Status: status, LastError: lastError})
	return nil
}

func (s *mockStore) lastWrite(t *testing.T) outcomeWrite {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.writes)
	return s.writes[len(s.writes)-1]
}

var _ store.Store = (*mockStore)(nil)

type mockClient struct {
	name         string
	authErr      error
	publishErr   error
	receipt      string
	authCalls    int
	publishCalls int
}

func (c *mockClient) Name() string { return c.name }

func (c *mockClient) Authenticate(_ context.Context) error {
	c.authCalls++
	return c.authErr
}

func (c *mockClient) Publish(_ context.Context, _ platform.Content) (string, error) {
	c.publishCalls++
	if c.publishErr != nil {
		return "", c.publishErr
	}
	return c.receipt, nil
}

// statelessClient has no Authenticate, like the mastodon adapter.
type statelessClient struct {
	receipt    string
	publishErr error
}

func (c *statelessClient) Name() string { return "mastodon" }
func (c *statelessClient) Publish(_ context.Context, _ platform.Content) (string, error) {
	if c.publishErr != nil {
		return "", c.publishErr
	}
	return c.receipt, nil
}

type mockBuilder struct {
	client platform.Client
	err    error
}

func (b *mockBuilder) Client(_ string, _ json.RawMessage, _ string) (platform.Client, error) {
	return b.client, b.err
}

// --- helpers ---

func testJob(attempt int) *models.Job {
	return &models.Job{
		ID:           uuid.New(),
		PostID:       uuid.New(),
		PlatformID:   uuid.New(),
		Status:       models.JobStatusProcessing,
		ScheduledFor: time.Now().UTC(),
		AttemptCount: attempt,
	}
}

func testPayload(job *models.Job, platformName string) *models.JobPayload {
	return &models.JobPayload{
		JobID:        job.ID,
		Content:      "hello world",
		PlatformName: platformName,
		Credentials:  json.RawMessage(`{"access_token":"tok"}`),
	}
}

func newDispatcher(st *mockStore, builder ClientBuilder, feed activity.Feed) *Dispatcher {
	if feed == nil {
		feed = activity.NewMemoryFeed(10)
	}
	return NewDispatcher(st, builder, feed, time.Second, 3)
}

// --- tests ---

func TestDispatch_Delivered(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "bluesky")}
	client := &mockClient{name: "bluesky", receipt: `{"uri":"at://x"}`}
	feed := activity.NewMemoryFeed(10)

	d := newDispatcher(st, &mockBuilder{client: client}, feed)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusDelivered, outcome.Status)
	assert.Equal(t, `{"uri":"at://x"}`, outcome.Receipt)
	assert.Equal(t, 1, client.authCalls, "session clients authenticate before publish")
	assert.Equal(t, 1, client.publishCalls)

	write := st.lastWrite(t)
	assert.Equal(t, job.ID, write.ID)
	assert.Equal(t, models.JobStatusDone, write.Status)

	entries, err := feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusDelivered, entries[0].Status)
	assert.Equal(t, "bluesky", entries[0].Platform)
}

func TestDispatch_StatelessClientSkipsAuthenticate(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "mastodon")}

	d := newDispatcher(st, &mockBuilder{client: &statelessClient{receipt: "ok"}}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, outcome.Status)
}

func TestDispatch_UnknownPlatform(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "carrier-pigeon")}
	builderErr := errors.New("unknown platform: \"carrier-pigeon\"")

	d := newDispatcher(st, &mockBuilder{err: errors.Join(platform.ErrUnknownPlatform, builderErr)}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusUnknownPlatform, outcome.Status)

	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
	assert.NotEmpty(t, write.LastError)
}

func TestDispatch_InvalidCredentials(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "mastodon")}

	d := newDispatcher(st, &mockBuilder{err: platform.ErrInvalidCredentials}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
}

func TestDispatch_AuthFailureSkipsPublish(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "bluesky")}
	client := &mockClient{
		name:    "bluesky",
		authErr: &platform.AuthError{Platform: "bluesky", StatusCode: 401},
	}

	d := newDispatcher(st, &mockBuilder{client: client}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, 0, client.publishCalls, "publish must not run after a failed login")

	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
	assert.Contains(t, write.LastError, "rejected credentials")
}

func TestDispatch_TransientErrorRequeues(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "mastodon")}
	client := &statelessClient{
		publishErr: &platform.APIError{Platform: "mastodon", StatusCode: 503, Body: "overloaded"},
	}

	d := newDispatcher(st, &mockBuilder{client: client}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusRequeued, outcome.Status)

	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusPending, write.Status)
	assert.Contains(t, write.LastError, "overloaded")
}

func TestDispatch_TransientErrorExhaustsAttempts(t *testing.T) {
	job := testJob(3) // attempt count already at the limit
	st := &mockStore{payload: testPayload(job, "mastodon")}
	client := &statelessClient{
		publishErr: &platform.APIError{Platform: "mastodon", StatusCode: 503},
	}

	d := newDispatcher(st, &mockBuilder{client: client}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
}

func TestDispatch_AuthErrorNeverRequeues(t *testing.T) {
	job := testJob(1) // attempts remain, but the error is terminal
	st := &mockStore{payload: testPayload(job, "mastodon")}
	client := &statelessClient{
		publishErr: &platform.AuthError{Platform: "mastodon", StatusCode: 401},
	}

	d := newDispatcher(st, &mockBuilder{client: client}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
}

func TestDispatch_MissingPayloadFails(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payloadErr: store.ErrNotFound}

	d := newDispatcher(st, &mockBuilder{}, nil)

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	write := st.lastWrite(t)
	assert.Equal(t, models.JobStatusFailed, write.Status)
	assert.Contains(t, write.LastError, "payload unavailable")
}

func TestDispatch_WriteBackErrorSurfaces(t *testing.T) {
	job := testJob(1)
	st := &mockStore{
		payload:  testPayload(job, "mastodon"),
		writeErr: errors.New("connection reset"),
	}

	d := newDispatcher(st, &mockBuilder{client: &statelessClient{receipt: "ok"}}, nil)

	_, err := d.Dispatch(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording delivered outcome")
}

func TestDispatch_FeedFailureIsNotFatal(t *testing.T) {
	job := testJob(1)
	st := &mockStore{payload: testPayload(job, "mastodon")}

	d := newDispatcher(st, &mockBuilder{client: &statelessClient{receipt: "ok"}}, failingFeed{})

	outcome, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, outcome.Status)
}

type failingFeed struct{}

func (failingFeed) Record(_ context.Context, _ activity.Entry) error { return errors.New("redis down") }
func (failingFeed) Recent(_ context.Context, _ int) ([]activity.Entry, error) {
	return nil, errors.New("redis down")
}
