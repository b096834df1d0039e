package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a long-lived opaque credential persisted only as a SHA-256
// hash. The plaintext is returned once at issuance and never stored. Multiple
// rows per user are valid at once (one per device/session); deleting a row
// revokes that session only.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
