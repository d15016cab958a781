package data

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

func newTestAudit(t *testing.T) repo.AuditRepo {
	t.Helper()
	r, err := NewAuditRepo(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewAuditRepo: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestAuditRepo_RecordAndRecent(t *testing.T) {
	r := newTestAudit(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		entry := &repo.AuditEntry{
			EventID:   fmt.Sprintf("ev-%d", i),
			ActorID:   "7",
			ActorName: "Ann",
			Action:    "add_command",
			Subject:   fmt.Sprintf("cmd-%d", i),
			Detail:    "user",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := r.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := r.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Subject != "cmd-4" || entries[2].Subject != "cmd-2" {
		t.Errorf("order = %s..%s, want newest first", entries[0].Subject, entries[2].Subject)
	}
	if entries[0].EventID != "ev-4" || entries[0].ActorName != "Ann" {
		t.Errorf("entry fields lost: %+v", entries[0])
	}
}

func TestAuditRepo_EmptyDatabase(t *testing.T) {
	r := newTestAudit(t)

	entries, err := r.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh database should have no entries, got %d", len(entries))
	}
}
