package models

import "time"

// Audit actions
const (
	ActionEmergencyGrant = "auth.emergency_grant"
	ActionProxyCall      = "proxy.model_admin"
)

// AuditLog is a row of the backend's audit_logs table
type AuditLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}
