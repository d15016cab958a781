package repo

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
)

// PermissionRepo persists the owner/admin record.
// The whole document is rewritten on every save.
type PermissionRepo interface {
	// Load reads the record from durable storage.
	// Returns (nil, nil) when no prior state exists.
	Load(ctx context.Context) (*domain.PermissionRecord, error)

	// Save writes the record wholesale. It must not return success
	// without a durable write.
	Save(ctx context.Context, rec *domain.PermissionRecord) error
}
