package data

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// permissionRepo persists the owner/admin record as a JSON document
type permissionRepo struct {
	path string
}

// NewPermissionRepo creates a file-backed permission repository.
func NewPermissionRepo(path string) repo.PermissionRepo {
	return &permissionRepo{path: path}
}

// Load reads the record; (nil, nil) when no document exists yet.
func (r *permissionRepo) Load(ctx context.Context) (*domain.PermissionRecord, error) {
	var rec domain.PermissionRecord
	found, err := readDocument(r.path, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if rec.AdminNames == nil {
		rec.AdminNames = map[string]string{}
	}
	return &rec, nil
}

// Save rewrites the whole record.
func (r *permissionRepo) Save(ctx context.Context, rec *domain.PermissionRecord) error {
	return writeDocument(r.path, rec)
}
