package tenant

import (
	"github.com/rentflow/rentflow/internal/tenant/repository"
	"github.com/rentflow/rentflow/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
