// Package audit records security-relevant admin actions (emergency grants,
// proxy calls) in the backend's audit_logs table.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/models"
)

// Recorder writes audit entries through the backend table API
type Recorder struct {
	backend backend.Backend
}

func New(b backend.Backend) *Recorder {
	return &Recorder{backend: b}
}

// Record inserts one audit entry, assigning id and timestamp when absent
func (r *Recorder) Record(ctx context.Context, entry models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.backend.Table("audit_logs").Insert(ctx, map[string]any{
		"id":         entry.ID,
		"timestamp":  entry.Timestamp,
		"user_id":    entry.UserID,
		"action":     entry.Action,
		"target":     entry.Target,
		"details":    entry.Details,
		"ip_address": entry.IPAddress,
	})
	return err
}

// List returns the most recent audit entries up to limit
func (r *Recorder) List(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.backend.Table("audit_logs").Limit(limit).Select(ctx)
}
