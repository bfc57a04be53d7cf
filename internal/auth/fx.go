package auth

import (
	"github.com/rentflow/rentflow/internal/auth/repository"
	"github.com/rentflow/rentflow/internal/auth/service"
	"github.com/rentflow/rentflow/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewManager),
	fx.Provide(service.New),
)
