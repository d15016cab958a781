package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// auditRepo records operations in SQLite
type auditRepo struct {
	db *sql.DB
}

// NewAuditRepo opens (creating if needed) the audit database.
func NewAuditRepo(dbPath string) (repo.AuditRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL,
			actor_name TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &auditRepo{db: db}, nil
}

// Record appends one entry.
func (r *auditRepo) Record(ctx context.Context, entry *repo.AuditEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit (event_id, actor_id, actor_name, action, subject, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.EventID,
		entry.ActorID,
		entry.ActorName,
		entry.Action,
		entry.Subject,
		entry.Detail,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (r *auditRepo) Recent(ctx context.Context, limit int) ([]*repo.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, actor_id, actor_name, action, subject, detail, created_at
		FROM audit
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*repo.AuditEntry
	for rows.Next() {
		var entry repo.AuditEntry
		var createdAt int64
		if err := rows.Scan(&entry.EventID, &entry.ActorID, &entry.ActorName, &entry.Action, &entry.Subject, &entry.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &entry)
	}

	return entries, nil
}

// Close closes the database connection.
func (r *auditRepo) Close() error {
	return r.db.Close()
}
