package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
)

func newTestCommands(t *testing.T, cmdRepo *fakeCommandRepo, perm *PermissionUsecase) *CommandUsecase {
	t.Helper()
	uc, err := NewCommandUsecase(context.Background(), cmdRepo, perm, &fakeAudit{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCommandUsecase: %v", err)
	}
	return uc
}

func TestCommand_LookupGatesAdminNamespace(t *testing.T) {
	perm := newTestPermission(t, &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}, &fakeAudit{}, "")
	cmdRepo := &fakeCommandRepo{table: &domain.CommandTable{
		Admin: map[string]string{"restart": "rebooting"},
		User:  map[string]string{"ping": "pong!"},
	}}
	uc := newTestCommands(t, cmdRepo, perm)

	if answer, ok := uc.Lookup(context.Background(), "ping", domain.Identity{ID: "stranger"}); !ok || answer != "pong!" {
		t.Errorf("user command for stranger = %q, %v; want pong!, true", answer, ok)
	}
	if _, ok := uc.Lookup(context.Background(), "restart", domain.Identity{ID: "stranger"}); ok {
		t.Error("admin command must be hidden from non-admins")
	}
	if answer, ok := uc.Lookup(context.Background(), "restart", domain.Identity{ID: "boss"}); !ok || answer != "rebooting" {
		t.Errorf("admin command for owner = %q, %v; want rebooting, true", answer, ok)
	}
	if _, ok := uc.Lookup(context.Background(), "missing", domain.Identity{ID: "boss"}); ok {
		t.Error("unknown command should miss")
	}
}

func TestCommand_AddMergesWithOnDiskEdits(t *testing.T) {
	perm := newTestPermission(t, &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}, &fakeAudit{}, "")
	cmdRepo := &fakeCommandRepo{table: domain.NewCommandTable()}
	uc := newTestCommands(t, cmdRepo, perm)

	// Simulate an edit made behind the usecase's back since load.
	cmdRepo.table.User["external"] = "edited elsewhere"

	if err := uc.Add(context.Background(), domain.Identity{ID: "boss"}, "ping", "pong!", domain.NamespaceUser); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cmdRepo.table.User["external"] != "edited elsewhere" {
		t.Error("add must not clobber the on-disk edit")
	}
	if cmdRepo.table.User["ping"] != "pong!" {
		t.Error("added command should be persisted")
	}
	if answer, ok := uc.Lookup(context.Background(), "external", domain.Identity{ID: "x"}); !ok || answer != "edited elsewhere" {
		t.Error("reread table should be served after add")
	}
}

func TestCommand_AddRejectsDuplicateAcrossNamespaces(t *testing.T) {
	perm := newTestPermission(t, &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}, &fakeAudit{}, "")
	cmdRepo := &fakeCommandRepo{table: &domain.CommandTable{
		Admin: map[string]string{"deploy": "ok"},
		User:  map[string]string{},
	}}
	uc := newTestCommands(t, cmdRepo, perm)

	err := uc.Add(context.Background(), domain.Identity{ID: "boss"}, "deploy", "nope", domain.NamespaceUser)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Add duplicate err = %v, want ErrAlreadyExists", err)
	}
	if cmdRepo.saves != 0 {
		t.Error("rejected add must not persist")
	}
}

func TestCommand_RemovePrefersAdminNamespace(t *testing.T) {
	perm := newTestPermission(t, &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}, &fakeAudit{}, "")
	cmdRepo := &fakeCommandRepo{table: &domain.CommandTable{
		Admin: map[string]string{"status": "admin view"},
		User:  map[string]string{"ping": "pong!"},
	}}
	uc := newTestCommands(t, cmdRepo, perm)

	ns, err := uc.Remove(context.Background(), domain.Identity{ID: "boss"}, "status")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ns != domain.NamespaceAdmin {
		t.Errorf("removed namespace = %s, want admin", ns)
	}
	if cmdRepo.saves != 1 {
		t.Errorf("saves = %d, want 1", cmdRepo.saves)
	}
	if _, err := uc.Remove(context.Background(), domain.Identity{ID: "boss"}, "status"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestCommand_RemoveSaveFailureKeepsPriorState(t *testing.T) {
	perm := newTestPermission(t, &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}, &fakeAudit{}, "")
	cmdRepo := &fakeCommandRepo{table: &domain.CommandTable{
		Admin: map[string]string{},
		User:  map[string]string{"ping": "pong!"},
	}}
	uc := newTestCommands(t, cmdRepo, perm)

	cmdRepo.failSave = true
	if _, err := uc.Remove(context.Background(), domain.Identity{ID: "boss"}, "ping"); err == nil {
		t.Fatal("Remove should surface the persist failure")
	}
	if answer, ok := uc.Lookup(context.Background(), "ping", domain.Identity{ID: "x"}); !ok || answer != "pong!" {
		t.Errorf("failed persist must keep the command served, got %q, %v", answer, ok)
	}
	if cmdRepo.table.User["ping"] != "pong!" {
		t.Error("failed persist must leave the stored table untouched")
	}

	cmdRepo.failSave = false
	if _, err := uc.Remove(context.Background(), domain.Identity{ID: "boss"}, "ping"); err != nil {
		t.Fatalf("Remove after recovery: %v", err)
	}
	if uc.Exists("ping") {
		t.Error("command should be gone once persist succeeds")
	}
}

func TestCommand_ReloadIsOwnerOnly(t *testing.T) {
	permRepo := &fakePermissionRepo{rec: domain.NewPermissionRecord("boss")}
	perm := newTestPermission(t, permRepo, &fakeAudit{}, "")
	if err := perm.AddAdmin(context.Background(), domain.Identity{ID: "boss"}, domain.Identity{ID: "7", Name: "Ann"}); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	cmdRepo := &fakeCommandRepo{table: domain.NewCommandTable()}
	uc := newTestCommands(t, cmdRepo, perm)

	cmdRepo.table.User["ping"] = "pong!"

	if err := uc.Reload(context.Background(), domain.Identity{ID: "7"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("admin reload err = %v, want ErrUnauthorized", err)
	}
	if uc.Exists("ping") {
		t.Error("rejected reload must not refresh the table")
	}

	if err := uc.Reload(context.Background(), domain.Identity{ID: "boss"}); err != nil {
		t.Fatalf("owner reload: %v", err)
	}
	if answer, ok := uc.Lookup(context.Background(), "ping", domain.Identity{ID: "x"}); !ok || answer != "pong!" {
		t.Error("reload should pick up the on-disk edit")
	}
}
