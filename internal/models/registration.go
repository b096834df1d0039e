package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus for ticket registrations.
const (
	RegistrationStatusConfirmed = "confirmed"
	RegistrationStatusCancelled = "cancelled"
)

// Registration is a ticket registration for an event. Unique per (event, user).
type Registration struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	UserID      uuid.UUID  `json:"user_id"`
	TicketCode  string     `json:"ticket_code"`
	Status      string     `json:"status"`
	AmountCents int        `json:"amount_cents"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
