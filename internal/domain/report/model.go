package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report statuses. The lifecycle is linear with two terminal states and
// no retries: a failed analysis means a fresh upload.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// statusTransitions defines valid status transitions for a lab report.
var statusTransitions = map[string][]string{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ValidateTransition checks if a report status transition is valid.
func ValidateTransition(from, to string) error {
	allowed, ok := statusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown from-status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", from, to)
}

// Report maps to the lab_report table.
type Report struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	ClinicID  *uuid.UUID      `db:"clinic_id" json:"clinic_id,omitempty"`
	BlobID    string          `db:"blob_id" json:"blob_id"`
	FileName  string          `db:"file_name" json:"file_name"`
	Status    string          `db:"status" json:"status"`
	Analysis  json.RawMessage `db:"analysis" json:"analysis,omitempty"`
	Error     *string         `db:"error" json:"error,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Terminal reports no longer change status.
func (r *Report) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
