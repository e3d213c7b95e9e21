package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/asocialdev/asocial/pkg/models"
)

var (
	// ErrNotFound is returned when a row (or a payload join) does not resolve.
	ErrNotFound = errors.New("resource not found")
	// ErrNotDraft is returned when scheduling a post that already left draft.
	ErrNotDraft = errors.New("post is not a draft")
)

// Store is the data access interface. All database operations go through
// here; the claim protocol makes it safe to share one Store across any
// number of pollers or processes.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultUser(ctx context.Context) (*models.User, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, userID uuid.UUID) ([]*models.Post, error)

	UpsertPlatform(ctx context.Context, platform *models.Platform) (*models.Platform, error)
	GetPlatform(ctx context.Context, userID uuid.UUID, name string) (*models.Platform, error)
	ListPlatforms(ctx context.Context, userID uuid.UUID) ([]*models.Platform, error)

	// SchedulePost transitions a draft to scheduled and inserts one pending
	// job per platform, all in a single transaction. The transition is
	// one-way: a post that is already scheduled returns ErrNotDraft.
	SchedulePost(ctx context.Context, postID uuid.UUID, scheduledFor time.Time, platformIDs []uuid.UUID) ([]*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error)

	// ClaimNextJob atomically claims the oldest eligible job (pending,
	// scheduled_for <= now): status moves to processing, attempt_count is
	// incremented, processed_at is stamped. Concurrent claimants skip rows
	// locked by each other, so no two callers ever receive the same job.
	// Returns (nil, nil) when no job is eligible.
	ClaimNextJob(ctx context.Context) (*models.Job, error)

	// GetJobPayload assembles the read-only join of job, post, and platform.
	// Returns ErrNotFound when the join no longer resolves; that is a
	// data-integrity fault, not a transient condition.
	GetJobPayload(ctx context.Context, jobID uuid.UUID) (*models.JobPayload, error)

	// Outcome recording. Each call requires the job to be in processing
	// (i.e. held by the caller) and returns ErrNotFound otherwise.
	MarkJobDelivered(ctx context.Context, id uuid.UUID) error
	MarkJobFailed(ctx context.Context, id uuid.UUID, lastError string) error
	RequeueJob(ctx context.Context, id uuid.UUID, lastError string) error
}

// JobFilter narrows ListJobs. Zero values mean "no constraint".
type JobFilter struct {
	Status string
	PostID uuid.UUID
	Limit  int
}
