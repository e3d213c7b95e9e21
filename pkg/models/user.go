package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns posts and platform targets. A "default" user is seeded by the
// initial migration so a single-operator deployment works out of the box.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Username  string    `db:"username"   json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
