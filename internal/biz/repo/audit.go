package repo

import (
	"context"
	"time"
)

// AuditEntry is one recorded operation
type AuditEntry struct {
	EventID   string
	ActorID   string
	ActorName string
	Action    string // claim, add_admin, remove_admin, add_command, remove_command, reload, lookup
	Subject   string // admin id, command name, ...
	Detail    string
	CreatedAt time.Time
}

// AuditRepo records mutating operations and answered lookups (SQLite).
// Audit writes are advisory: a failure is logged, never surfaced to the
// chat user.
type AuditRepo interface {
	// Record appends one entry.
	Record(ctx context.Context, entry *AuditEntry) error

	// Recent returns the latest entries, newest first.
	Recent(ctx context.Context, limit int) ([]*AuditEntry, error)

	// Close releases the underlying store.
	Close() error
}
