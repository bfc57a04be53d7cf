package subscription

import (
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/internal/subscription/domain"
	"github.com/rentflow/rentflow/internal/subscription/repository"
	"github.com/rentflow/rentflow/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	// Organization creation assigns the starter plan through this seam.
	fx.Provide(func(svc domain.Service) organizationdomain.StarterAssigner { return svc }),
)
