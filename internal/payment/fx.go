package payment

import (
	"github.com/rentflow/rentflow/internal/payment/repository"
	"github.com/rentflow/rentflow/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewGenerator),
)
