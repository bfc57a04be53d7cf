package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/activitylog"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/cloudmetrics"
	"github.com/rentflow/rentflow/internal/config"
	"github.com/rentflow/rentflow/internal/contract"
	"github.com/rentflow/rentflow/internal/migration"
	"github.com/rentflow/rentflow/internal/observability"
	"github.com/rentflow/rentflow/internal/payment"
	"github.com/rentflow/rentflow/internal/ratelimit"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/scheduler"
	"github.com/rentflow/rentflow/internal/server"
	"github.com/rentflow/rentflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		runJobsOnce()
		return
	}

	// config.Module rides in through server.Module.
	app := fx.New(
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

// runJobsOnce executes one scheduler sweep and exits, for cron-style
// deployments that keep the batch jobs outside the API process. Only the
// modules the jobs touch are assembled; the HTTP surface stays down.
func runJobsOnce() {
	var runErr error

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		cloudmetrics.Module,
		activitylog.Module,
		realtime.Module,
		ratelimit.Module,
		contract.Module,
		payment.Module,
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Invoke(func(s *scheduler.Scheduler, shutdowner fx.Shutdowner) {
			go func() {
				runErr = s.RunOnce(context.Background())
				_ = shutdowner.Shutdown()
			}()
		}),
	)
	app.Run()

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
