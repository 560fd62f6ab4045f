package models

import "time"

// Role represents user access levels
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Profile status values
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Profile mirrors a row of the hosted backend's profiles table.
// It is distinct from the authentication record itself: the hosted auth
// provider owns identity, the profile carries role/status metadata.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin returns true if the profile has admin privileges
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfileResult pairs a profile with its cache provenance
type ProfileResult struct {
	Profile   *Profile `json:"profile"`
	FromCache bool     `json:"from_cache"`
}
