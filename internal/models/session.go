package models

import "time"

// SessionRecord is the durable state kept for one authenticated session.
// ExpiresAt is always LoginAt + Duration; a refresh rewrites both.
type SessionRecord struct {
	UserID    string        `json:"user_id"`
	Email     string        `json:"email,omitempty"`
	LoggedIn  bool          `json:"logged_in"`
	LoginAt   time.Time     `json:"login_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Duration  time.Duration `json:"duration_ms"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	AccessToken string `json:"access_token"`
}

// LoginResponse represents the response after successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}

// SessionStatus is returned by GET /api/auth/session
type SessionStatus struct {
	LoggedIn  bool      `json:"logged_in"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
}

// EmergencyRequest represents the request body for an emergency access grant
type EmergencyRequest struct {
	UserID       string `json:"user_id"`
	EmergencyKey string `json:"emergency_key"`
}

// EmergencyResponse is returned after a successful emergency grant
type EmergencyResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
