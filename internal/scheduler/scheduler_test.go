package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rentflow/rentflow/internal/clock"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	contractrepo "github.com/rentflow/rentflow/internal/contract/repository"
	obsmetrics "github.com/rentflow/rentflow/internal/observability/metrics"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	paymentrepo "github.com/rentflow/rentflow/internal/payment/repository"
	paymentservice "github.com/rentflow/rentflow/internal/payment/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// swapPrometheusRegistry isolates scheduler metric counters per test.
func swapPrometheusRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()

	registry := prometheus.NewRegistry()
	prevRegisterer := prometheus.DefaultRegisterer
	prevGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevRegisterer
		prometheus.DefaultGatherer = prevGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	})
	return registry
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, metric := range family.GetMetric() {
			have := map[string]string{}
			for _, pair := range metric.GetLabel() {
				have[pair.GetName()] = pair.GetValue()
			}
			for k, v := range labels {
				if have[k] != v {
					continue metric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func newSchedulerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&contractdomain.Contract{}, &paymentdomain.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func insertContract(t *testing.T, conn *gorm.DB, node *snowflake.Node, status string, start, end time.Time) *contractdomain.Contract {
	t.Helper()

	now := time.Now().UTC()
	contract := &contractdomain.Contract{
		ID:         node.Generate(),
		OrgID:      node.Generate(),
		UnitID:     node.Generate(),
		TenantID:   node.Generate(),
		Status:     status,
		StartDate:  start,
		EndDate:    end,
		RentAmount: 1000,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := conn.Create(contract).Error; err != nil {
		t.Fatalf("insert contract: %v", err)
	}
	return contract
}

func newTestScheduler(t *testing.T, conn *gorm.DB, now time.Time, cfg Config) *Scheduler {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(now)
	generator := paymentservice.NewGenerator(conn, paymentrepo.Provide(), contractrepo.Provide(), clk, node, zap.NewNop())

	sched, err := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Contracts: contractrepo.Provide(),
		Generator: generator,
		Clock:     clk,
		Config:    cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

func TestRunOnceExpiresAndGeneratesRent(t *testing.T) {
	registry := swapPrometheusRegistry(t)
	conn := newSchedulerTestDB(t)
	node, _ := snowflake.NewNode(2)

	today := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)
	stale := insertContract(t, conn, node, contractdomain.StatusActive,
		time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC))
	live := insertContract(t, conn, node, contractdomain.StatusActive,
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC))

	sched := newTestScheduler(t, conn, today, Config{})
	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var reloaded contractdomain.Contract
	if err := conn.First(&reloaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("reload stale contract: %v", err)
	}
	if reloaded.Status != contractdomain.StatusExpired {
		t.Fatalf("stale contract status = %s, want EXPIRED", reloaded.Status)
	}

	var payments int64
	if err := conn.Model(&paymentdomain.Payment{}).Where("contract_id = ?", live.ID).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 2 {
		t.Fatalf("payments = %d, want 2 (May and June)", payments)
	}

	if got := getCounterValue(t, registry, "rentflow_scheduler_job_runs_total", map[string]string{"job": "expire_contracts"}); got != 1 {
		t.Fatalf("expire job runs = %v, want 1", got)
	}
	if got := getCounterValue(t, registry, "rentflow_scheduler_job_runs_total", map[string]string{"job": "generate_rent_payments"}); got != 1 {
		t.Fatalf("generate job runs = %v, want 1", got)
	}
	if got := getCounterValue(t, registry, "rentflow_scheduler_rows_affected_total", map[string]string{"job": "expire_contracts"}); got != 1 {
		t.Fatalf("expire rows affected = %v, want 1", got)
	}
}

func TestExpireContractsStampsClockTime(t *testing.T) {
	swapPrometheusRegistry(t)
	conn := newSchedulerTestDB(t)
	node, _ := snowflake.NewNode(4)

	now := time.Date(2024, time.June, 15, 8, 30, 0, 0, time.UTC)
	stale := insertContract(t, conn, node, contractdomain.StatusActive,
		time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC))

	sched := newTestScheduler(t, conn, now, Config{EnabledJobs: []string{"expire_contracts"}})
	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var reloaded contractdomain.Contract
	if err := conn.First(&reloaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("reload contract: %v", err)
	}
	if reloaded.Status != contractdomain.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", reloaded.Status)
	}
	// updated_at carries the wall clock, not the midnight day boundary the
	// expiry comparison uses.
	if !reloaded.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", reloaded.UpdatedAt, now)
	}
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	registry := swapPrometheusRegistry(t)
	conn := newSchedulerTestDB(t)
	node, _ := snowflake.NewNode(3)

	today := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)
	insertContract(t, conn, node, contractdomain.StatusActive,
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC))

	sched := newTestScheduler(t, conn, today, Config{EnabledJobs: []string{"expire_contracts"}})
	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var payments int64
	if err := conn.Model(&paymentdomain.Payment{}).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 0 {
		t.Fatalf("payments = %d, generator should be disabled", payments)
	}
	if got := getCounterValue(t, registry, "rentflow_scheduler_job_runs_total", map[string]string{"job": "generate_rent_payments"}); got != 0 {
		t.Fatalf("generate job runs = %v, want 0", got)
	}
}

type blockingGenerator struct{}

func (blockingGenerator) GenerateRent(ctx context.Context, _ time.Time) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestRunOnceTreatsJobTimeoutAsSoftFailure(t *testing.T) {
	registry := swapPrometheusRegistry(t)
	conn := newSchedulerTestDB(t)

	sched, err := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Contracts: contractrepo.Provide(),
		Generator: blockingGenerator{},
		Clock:     clock.NewFakeClock(time.Now()),
		Config:    Config{JobTimeout: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once should absorb the timeout, got %v", err)
	}
	if got := getCounterValue(t, registry, "rentflow_scheduler_job_timeouts_total", map[string]string{"job": "generate_rent_payments"}); got != 1 {
		t.Fatalf("timeouts = %v, want 1", got)
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateRent(context.Context, time.Time) (int64, error) {
	return 0, errors.New("generator exploded")
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	swapPrometheusRegistry(t)
	conn := newSchedulerTestDB(t)

	sched, err := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Contracts: contractrepo.Provide(),
		Generator: failingGenerator{},
		Clock:     clock.NewFakeClock(time.Now()),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	err = sched.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "generator exploded") {
		t.Fatalf("err = %v, want generator failure surfaced", err)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	if _, err := New(Params{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
