package cloudmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rentflow/rentflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = 30 * time.Minute

var Module = fx.Module("cloud.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

// Register wires the recorder and starts the periodic push loop. Failures are
// logged and never block tenant-facing workflows.
func Register(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, db *gorm.DB, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pusher == nil {
		return
	}

	m := newMetrics(registry)
	setRecorder(&recorder{
		metrics:      m,
		defaultOrgID: cfg.Cloud.OrganizationID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting cloud metrics background worker")
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				updateSnapshot(ctx, m, db)
				if err := pusher.Push(ctx, registry); err != nil {
					logger.Error("initial cloud metrics push failed", zap.Error(err))
				}

				for {
					select {
					case <-ticker.C:
						updateSnapshot(ctx, m, db)
						if err := pusher.Push(ctx, registry); err != nil {
							logger.Error("periodic cloud metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						logger.Info("stopping cloud metrics background worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func updateSnapshot(ctx context.Context, m *metrics, db *gorm.DB) {
	if m == nil {
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryBytes.Set(float64(mem.Sys))

	if db == nil {
		return
	}
	var orgCount int64
	if err := db.WithContext(ctx).Table("organizations").Where("is_active = ?", true).Count(&orgCount).Error; err == nil {
		m.organizationsTotal.Set(float64(orgCount))
	}
	var occupied int64
	if err := db.WithContext(ctx).Table("units").Where("status = ?", "OCCUPIED").Count(&occupied).Error; err == nil {
		m.occupiedUnits.Set(float64(occupied))
	}
}
