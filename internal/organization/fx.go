package organization

import (
	"github.com/rentflow/rentflow/internal/organization/repository"
	"github.com/rentflow/rentflow/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
