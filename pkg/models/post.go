package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
)

// Post is user-authored content. Drafts carry no jobs; scheduling a post
// is a one-way draft -> scheduled transition that spawns one job per
// enabled platform.
type Post struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	UserID     uuid.UUID `db:"user_id"     json:"user_id"`
	Content    string    `db:"content"     json:"content"`
	Status     string    `db:"status"      json:"status"`
	MediaPaths []string  `db:"media_paths" json:"media_paths,omitempty"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}
