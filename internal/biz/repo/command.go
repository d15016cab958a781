package repo

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
)

// CommandRepo persists the two-namespace command table.
// The whole document is rewritten on every save.
type CommandRepo interface {
	// Load reads the table from durable storage.
	// Returns (nil, nil) when no prior state exists.
	Load(ctx context.Context) (*domain.CommandTable, error)

	// Save writes the table wholesale. It must not return success
	// without a durable write.
	Save(ctx context.Context, table *domain.CommandTable) error
}
