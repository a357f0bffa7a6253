package domain

import "time"

// Audit statuses.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
	AuditError   = "ERROR"
)

// AuditEntry records one task or identity mutation attempt.
type AuditEntry struct {
	ID        string    `db:"id"`
	ActorID   string    `db:"actor_id"`
	ActorName string    `db:"actor_name"`
	Action    string    `db:"action"`
	TargetID  string    `db:"target_id"`
	Status    string    `db:"status"` // "ALLOWED", "DENIED", "ERROR"
	Detail    *string   `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

// AuditFilter holds filter parameters for querying audit logs.
type AuditFilter struct {
	ActorID *string
	Action  *string
	Status  *string
	Since   *time.Time
	Limit   int
}
