package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Platform is a named delivery target owned by a user: an opaque
// credentials document plus an optional API base URL override. One
// platform row may back many jobs. The credentials blob is decoded into
// a typed struct by the matching adapter; it is never field-accessed ad
// hoc elsewhere.
type Platform struct {
	ID          uuid.UUID       `db:"id"          json:"id"`
	UserID      uuid.UUID       `db:"user_id"     json:"user_id"`
	Name        string          `db:"name"        json:"name"`
	Credentials json.RawMessage `db:"credentials" json:"-"`
	APIURL      *string         `db:"api_url"     json:"api_url,omitempty"`
	CreatedAt   time.Time       `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"  json:"updated_at"`
}
