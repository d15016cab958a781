package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// CommandUsecase owns the two-namespace command table. Runs on the
// dispatcher's single event loop, see PermissionUsecase.
type CommandUsecase struct {
	cmdRepo repo.CommandRepo
	perm    *PermissionUsecase
	audit   repo.AuditRepo

	table *domain.CommandTable

	log zerolog.Logger
}

// NewCommandUsecase loads the table from storage; an absent document
// starts an empty table.
func NewCommandUsecase(ctx context.Context, cmdRepo repo.CommandRepo, perm *PermissionUsecase, audit repo.AuditRepo, log zerolog.Logger) (*CommandUsecase, error) {
	table, err := cmdRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load command table: %w", err)
	}
	if table == nil {
		table = domain.NewCommandTable()
	}

	return &CommandUsecase{
		cmdRepo: cmdRepo,
		perm:    perm,
		audit:   audit,
		table:   table,
		log:     log,
	}, nil
}

// Lookup resolves a command answer for the caller. The user namespace
// is consulted first; admin-namespace answers are returned only to
// admins. A miss and an unauthorized admin command look the same to the
// caller, so non-admins cannot probe for admin-only names.
func (uc *CommandUsecase) Lookup(ctx context.Context, name string, caller domain.Identity) (string, bool) {
	if answer, ok := uc.table.User[name]; ok {
		uc.recordAudit(ctx, caller, "lookup", name, string(domain.NamespaceUser))
		return answer, true
	}
	if answer, ok := uc.table.Admin[name]; ok && uc.perm.IsAdmin(caller.ID) {
		uc.recordAudit(ctx, caller, "lookup", name, string(domain.NamespaceAdmin))
		return answer, true
	}
	return "", false
}

// Exists reports whether the name is taken in either namespace.
func (uc *CommandUsecase) Exists(name string) bool {
	return uc.table.Exists(name)
}

// Names lists all command names for the removal menu.
func (uc *CommandUsecase) Names() []string {
	return uc.table.Names()
}

// Add inserts a command against the latest on-disk document, not the
// cached one, so an out-of-process edit picked up since the last reload
// is not lost.
func (uc *CommandUsecase) Add(ctx context.Context, actor domain.Identity, name, answer string, ns domain.Namespace) error {
	fresh, err := uc.cmdRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("reread command table: %w", err)
	}
	if fresh == nil {
		fresh = domain.NewCommandTable()
	}
	if err := fresh.Add(name, answer, ns); err != nil {
		return err
	}
	if err := uc.cmdRepo.Save(ctx, fresh); err != nil {
		return fmt.Errorf("persist command table: %w", err)
	}
	uc.table = fresh
	uc.recordAudit(ctx, actor, "add_command", name, string(ns))
	uc.log.Info().Str("command", name).Str("namespace", string(ns)).Msg("command added")
	return nil
}

// Remove deletes a command from whichever namespace holds it. The
// removal is applied to a copy and persisted before the live table is
// swapped, so a failed write keeps the prior state authoritative.
func (uc *CommandUsecase) Remove(ctx context.Context, actor domain.Identity, name string) (domain.Namespace, error) {
	next := uc.table.Clone()
	ns, err := next.Remove(name)
	if err != nil {
		return "", err
	}
	if err := uc.cmdRepo.Save(ctx, next); err != nil {
		return "", fmt.Errorf("persist command table: %w", err)
	}
	uc.table = next
	uc.recordAudit(ctx, actor, "remove_command", name, string(ns))
	uc.log.Info().Str("command", name).Str("namespace", string(ns)).Msg("command removed")
	return ns, nil
}

// Reload replaces the in-memory table from storage. Owner only; used to
// pick up out-of-process edits.
func (uc *CommandUsecase) Reload(ctx context.Context, caller domain.Identity) error {
	if !uc.perm.IsOwner(caller.ID) {
		return domain.ErrUnauthorized
	}
	table, err := uc.cmdRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload command table: %w", err)
	}
	if table == nil {
		table = domain.NewCommandTable()
	}
	uc.table = table
	uc.recordAudit(ctx, caller, "reload", "", "")
	uc.log.Info().Msg("command table reloaded")
	return nil
}

func (uc *CommandUsecase) recordAudit(ctx context.Context, actor domain.Identity, action, subject, detail string) {
	if uc.audit == nil {
		return
	}
	entry := &repo.AuditEntry{
		EventID:   domain.EventIDFromContext(ctx),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
	if err := uc.audit.Record(ctx, entry); err != nil {
		uc.log.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}
