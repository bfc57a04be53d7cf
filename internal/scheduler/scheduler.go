// Package scheduler runs the daily batch jobs: the contract expiry sweep and
// the rent payment generator. A redis run-lock keeps multiple instances from
// running the same sweep concurrently; without redis the lock degrades to a
// single-instance assumption.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rentflow/rentflow/internal/clock"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	obsmetrics "github.com/rentflow/rentflow/internal/observability/metrics"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	"github.com/rentflow/rentflow/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const runLockKey = "scheduler:run"

var ErrInvalidConfig = errors.New("scheduler dependencies are incomplete")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Contracts contractdomain.Repository
	Generator paymentdomain.Generator
	Clock     clock.Clock
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	contracts contractdomain.Repository
	generator paymentdomain.Generator
	clock     clock.Clock
	locker    *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Contracts == nil || p.Generator == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		contracts: p.Contracts,
		generator: p.Generator,
		clock:     p.Clock,
		locker:    p.Locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job in order. Job errors are joined, not
// fatal: one failing job never blocks the others.
func (s *Scheduler) RunOnce(parent context.Context) error {
	token, acquired, lockErr := s.tryRunLock(parent)
	if lockErr != nil {
		s.log.Warn("run lock unavailable, proceeding without it", zap.Error(lockErr))
	} else if !acquired {
		obsmetrics.Scheduler().IncJobSkip("run_lock_held")
		s.log.Info("another instance holds the run lock, skipping")
		return nil
	}
	if token != "" {
		defer s.releaseRunLock(parent, token)
	}

	var err error
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"expire_contracts", func(ctx context.Context) error {
			return s.runJob(ctx, "expire_contracts", s.ExpireContractsJob)
		}},
		{"generate_rent_payments", func(ctx context.Context) error {
			return s.runJob(ctx, "generate_rent_payments", s.GenerateRentPaymentsJob)
		}},
	}
	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) tryRunLock(ctx context.Context) (string, bool, error) {
	if s.locker == nil {
		return "", true, nil
	}
	return s.locker.TryLock(ctx, runLockKey, s.cfg.LockTTL)
}

func (s *Scheduler) releaseRunLock(ctx context.Context, token string) {
	if s.locker == nil {
		return
	}
	if err := s.locker.Release(ctx, runLockKey, token); err != nil {
		s.log.Warn("run lock release failed", zap.Error(err))
	}
}

// ExpireContractsJob flips every ACTIVE contract past its end date to EXPIRED
// in one bulk update.
func (s *Scheduler) ExpireContractsJob(ctx context.Context) error {
	now := s.clock.Now().UTC()
	today := now.Truncate(24 * time.Hour)
	expired, err := s.contracts.ExpireDue(ctx, s.db, today, now)
	if err != nil {
		return err
	}
	if expired > 0 {
		obsmetrics.Scheduler().AddRowsAffected("expire_contracts", expired)
		s.log.Info("contracts expired", zap.Int64("count", expired))
	}
	return nil
}

// GenerateRentPaymentsJob back-fills monthly rent payments for every ACTIVE
// contract up through today.
func (s *Scheduler) GenerateRentPaymentsJob(ctx context.Context) error {
	inserted, err := s.generator.GenerateRent(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if inserted > 0 {
		obsmetrics.Scheduler().AddRowsAffected("generate_rent_payments", inserted)
	}
	return nil
}
