package property

import (
	"github.com/rentflow/rentflow/internal/property/repository"
	"github.com/rentflow/rentflow/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
