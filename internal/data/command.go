package data

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// commandRepo persists the command table as a JSON document
type commandRepo struct {
	path string
}

// NewCommandRepo creates a file-backed command repository.
func NewCommandRepo(path string) repo.CommandRepo {
	return &commandRepo{path: path}
}

// Load reads the table; (nil, nil) when no document exists yet.
func (r *commandRepo) Load(ctx context.Context) (*domain.CommandTable, error) {
	table := domain.NewCommandTable()
	found, err := readDocument(r.path, table)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if table.Admin == nil {
		table.Admin = map[string]string{}
	}
	if table.User == nil {
		table.User = map[string]string{}
	}
	return table, nil
}

// Save rewrites the whole table.
func (r *commandRepo) Save(ctx context.Context, table *domain.CommandTable) error {
	return writeDocument(r.path, table)
}
