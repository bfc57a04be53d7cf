package contract

import (
	"github.com/rentflow/rentflow/internal/contract/repository"
	"github.com/rentflow/rentflow/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
