package data

import (
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
	"github.com/anthropics/feishu-reply-bot/internal/infra/lark"
)

// Repositories contains all repositories
type Repositories struct {
	Permission repo.PermissionRepo
	Command    repo.CommandRepo
	Audit      repo.AuditRepo
	Messenger  repo.MessengerRepo
}

// NewRepositories creates all repositories.
func NewRepositories(larkClient *lark.Client, adminPath, commandsPath, auditDBPath string) (*Repositories, error) {
	auditRepo, err := NewAuditRepo(auditDBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Permission: NewPermissionRepo(adminPath),
		Command:    NewCommandRepo(commandsPath),
		Audit:      auditRepo,
		Messenger:  NewMessengerRepo(larkClient),
	}, nil
}
