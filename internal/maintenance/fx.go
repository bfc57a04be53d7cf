package maintenance

import (
	"github.com/rentflow/rentflow/internal/maintenance/repository"
	"github.com/rentflow/rentflow/internal/maintenance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("maintenance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
