package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus for events.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
)

// Event represents an event listed on the platform.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Venue       string     `json:"venue"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    int        `json:"capacity"` // 0 = unlimited
	PriceCents  int        `json:"price_cents"`
	Currency    string     `json:"currency"`
	BannerKey   string     `json:"-"`
	BannerURL   string     `json:"banner_url,omitempty"`
	Status      string     `json:"status"`
	OrganizerID uuid.UUID  `json:"organizer_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsFree reports whether the event has no ticket price.
func (e *Event) IsFree() bool { return e.PriceCents == 0 }
