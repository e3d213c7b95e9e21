package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// Job is one scheduled delivery of a post to a platform. A job becomes
// eligible for claim once scheduled_for has passed; the claim itself moves
// it to processing and stamps processed_at, and the dispatcher records the
// terminal done/failed state after the delivery attempt.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	PostID       uuid.UUID  `db:"post_id"       json:"post_id"`
	PlatformID   uuid.UUID  `db:"platform_id"   json:"platform_id"`
	Status       string     `db:"status"        json:"status"`
	ScheduledFor time.Time  `db:"scheduled_for" json:"scheduled_for"`
	AttemptCount int        `db:"attempt_count" json:"attempt_count"`
	LastError    *string    `db:"last_error"    json:"last_error,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at"  json:"processed_at,omitempty"`
}

// JobPayload is the read-only join of a job with its post content and
// platform target. It is assembled per dispatch and never persisted.
type JobPayload struct {
	JobID        uuid.UUID       `db:"job_id"        json:"job_id"`
	Content      string          `db:"content"       json:"content"`
	PlatformName string          `db:"platform_name" json:"platform_name"`
	Credentials  json.RawMessage `db:"credentials"   json:"-"`
	APIURL       *string         `db:"api_url"       json:"api_url,omitempty"`
	MediaPaths   []string        `db:"media_paths"   json:"media_paths,omitempty"`
}
