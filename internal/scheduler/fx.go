package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// NewScheduler ties the run loop to the fx lifecycle. The loop starts in its
// own goroutine on app start and is cancelled on shutdown.
func NewScheduler(lc fx.Lifecycle, s *Scheduler, log *zap.Logger) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, c := context.WithCancel(context.Background())
			cancel = c
			log.Info("scheduler started",
				zap.Duration("interval", s.cfg.RunInterval),
				zap.Duration("job_timeout", s.cfg.JobTimeout),
			)
			go s.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
