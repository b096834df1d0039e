package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleRegular   Role = "regular"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// AtLeastOrganizer reports whether the role may manage events.
func (r Role) AtLeastOrganizer() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// User represents a platform user. Organizer profile fields are empty until the
// user upgrades to organizer.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	OrgName    string    `json:"organization_name,omitempty"`
	OrgType    string    `json:"organization_type,omitempty"`
	OrgDesc    string    `json:"organization_description,omitempty"`
	OrgWebsite string    `json:"organization_website,omitempty"`
	EventTypes []string  `json:"event_types,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	OrgName    string    `json:"organization_name,omitempty"`
	OrgType    string    `json:"organization_type,omitempty"`
	OrgDesc    string    `json:"organization_description,omitempty"`
	OrgWebsite string    `json:"organization_website,omitempty"`
	EventTypes []string  `json:"event_types,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		OrgName:    u.OrgName,
		OrgType:    u.OrgType,
		OrgDesc:    u.OrgDesc,
		OrgWebsite: u.OrgWebsite,
		EventTypes: u.EventTypes,
		CreatedAt:  u.CreatedAt,
	}
}
