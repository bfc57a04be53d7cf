package activitylog

import (
	"github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/activitylog/repository"
	"github.com/rentflow/rentflow/internal/activitylog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activitylog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Recorder { return svc }),
)
