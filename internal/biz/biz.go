package biz

import (
	"github.com/anthropics/feishu-reply-bot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Permission   *usecase.PermissionUsecase
	Command      *usecase.CommandUsecase
	Provisioning *usecase.ProvisioningUsecase
}
