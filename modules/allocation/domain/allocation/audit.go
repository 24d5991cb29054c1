package allocation

import "time"

// AuditEntry is one committed change as recorded in the audit trail.
type AuditEntry struct {
	ID          int64     `json:"id"`
	Portfolio   string    `json:"portfolio"`
	Person      string    `json:"person"`
	Project     string    `json:"project"`
	Month       string    `json:"month"`
	OldValue    float64   `json:"oldValue"`
	NewValue    float64   `json:"newValue"`
	CommittedAt time.Time `json:"committedAt"`
}
