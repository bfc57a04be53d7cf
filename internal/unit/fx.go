package unit

import (
	"github.com/rentflow/rentflow/internal/unit/repository"
	"github.com/rentflow/rentflow/internal/unit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("unit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
