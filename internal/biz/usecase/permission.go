package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// PermissionUsecase owns the owner/admin record. All calls run on the
// dispatcher's single event loop, so no internal locking is needed; the
// loop is the mutual-exclusion boundary.
type PermissionUsecase struct {
	permRepo repo.PermissionRepo
	audit    repo.AuditRepo

	rec *domain.PermissionRecord

	// one-shot flags for the private add-admin-by-forward flow, keyed
	// by chat id; in-memory only
	pendingPrivateAdd map[string]bool

	log zerolog.Logger
}

// NewPermissionUsecase loads the record from storage. When no prior
// state exists the record is pre-seeded with ownerID if one is
// configured, otherwise it starts claimable.
func NewPermissionUsecase(ctx context.Context, permRepo repo.PermissionRepo, audit repo.AuditRepo, ownerID string, log zerolog.Logger) (*PermissionUsecase, error) {
	rec, err := permRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load permission record: %w", err)
	}
	if rec == nil {
		rec = domain.NewPermissionRecord(ownerID)
		if !rec.Claimable() {
			if err := permRepo.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("seed permission record: %w", err)
			}
			log.Info().Str("owner", ownerID).Msg("permission record seeded from environment")
		} else {
			log.Info().Msg("no permission record found, bot is claimable")
		}
	}

	return &PermissionUsecase{
		permRepo:          permRepo,
		audit:             audit,
		rec:               rec,
		pendingPrivateAdd: make(map[string]bool),
		log:               log,
	}, nil
}

// IsOwner reports whether the identity is the owner.
func (uc *PermissionUsecase) IsOwner(id string) bool {
	return uc.rec.IsOwner(id)
}

// IsAdmin reports whether the identity is the owner or an admin.
func (uc *PermissionUsecase) IsAdmin(id string) bool {
	return uc.rec.IsAdmin(id)
}

// Claimable reports whether no owner has been set yet.
func (uc *PermissionUsecase) Claimable() bool {
	return uc.rec.Claimable()
}

// Admins lists the current admins with their display names, for the
// removal menu.
func (uc *PermissionUsecase) Admins() []domain.Identity {
	admins := make([]domain.Identity, 0, len(uc.rec.Admins))
	for _, id := range uc.rec.Admins {
		admins = append(admins, domain.Identity{ID: id, Name: uc.rec.AdminNames[id]})
	}
	return admins
}

// Claim fixes the caller as owner. Succeeds at most once per record
// lifetime; later callers get ErrAlreadyOwned.
func (uc *PermissionUsecase) Claim(ctx context.Context, actor domain.Identity) error {
	next := uc.clone()
	if err := next.Claim(actor.ID); err != nil {
		return err
	}
	if err := uc.permRepo.Save(ctx, next); err != nil {
		return fmt.Errorf("persist claim: %w", err)
	}
	uc.rec = next
	uc.recordAudit(ctx, actor, "claim", actor.ID, "")
	uc.log.Info().Str("owner", actor.ID).Msg("bot claimed")
	return nil
}

// AddAdmin grants admin rights to the given identity.
func (uc *PermissionUsecase) AddAdmin(ctx context.Context, actor, newAdmin domain.Identity) error {
	next := uc.clone()
	if err := next.AddAdmin(newAdmin.ID, newAdmin.Name); err != nil {
		return err
	}
	if err := uc.permRepo.Save(ctx, next); err != nil {
		return fmt.Errorf("persist add admin: %w", err)
	}
	uc.rec = next
	uc.recordAudit(ctx, actor, "add_admin", newAdmin.ID, newAdmin.Name)
	uc.log.Info().Str("admin", newAdmin.ID).Str("name", newAdmin.Name).Msg("admin added")
	return nil
}

// RemoveAdmin revokes admin rights and returns the removed display name.
func (uc *PermissionUsecase) RemoveAdmin(ctx context.Context, actor domain.Identity, adminID string) (string, error) {
	next := uc.clone()
	name, err := next.RemoveAdmin(adminID)
	if err != nil {
		return "", err
	}
	if err := uc.permRepo.Save(ctx, next); err != nil {
		return "", fmt.Errorf("persist remove admin: %w", err)
	}
	uc.rec = next
	uc.recordAudit(ctx, actor, "remove_admin", adminID, name)
	uc.log.Info().Str("admin", adminID).Str("name", name).Msg("admin removed")
	return name, nil
}

// MarkPendingPrivateAdd arms the forward-a-contact flow for a chat.
func (uc *PermissionUsecase) MarkPendingPrivateAdd(chatID string) {
	uc.pendingPrivateAdd[chatID] = true
}

// ConsumePendingPrivateAdd clears and reports the one-shot flag. The
// flag is gone after the first call regardless of what the caller does
// with the answer.
func (uc *PermissionUsecase) ConsumePendingPrivateAdd(chatID string) bool {
	armed := uc.pendingPrivateAdd[chatID]
	delete(uc.pendingPrivateAdd, chatID)
	return armed
}

// clone copies the record so a failed persist leaves the in-memory
// state untouched.
func (uc *PermissionUsecase) clone() *domain.PermissionRecord {
	next := &domain.PermissionRecord{
		Owner:      append([]string(nil), uc.rec.Owner...),
		Admins:     append([]string(nil), uc.rec.Admins...),
		AdminNames: make(map[string]string, len(uc.rec.AdminNames)),
	}
	for id, name := range uc.rec.AdminNames {
		next.AdminNames[id] = name
	}
	return next
}

func (uc *PermissionUsecase) recordAudit(ctx context.Context, actor domain.Identity, action, subject, detail string) {
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
