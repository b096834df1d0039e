package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus for payment history rows.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is a bookkeeping row for a paid registration. There is no gateway
// integration; rows record what was charged or refunded.
type Payment struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	UserID         uuid.UUID  `json:"user_id"`
	EventID        uuid.UUID  `json:"event_id"`
	Provider       string     `json:"provider"`
	AmountCents    int        `json:"amount_cents"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
