// Command schedulerd runs the scheduler (Jobs/Timers promotion) and the
// fanout coordinator under their respective leases (spec §4.7, §4.8).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reliableworkqueue/workqueue/internal/config"
	"github.com/reliableworkqueue/workqueue/internal/db"
	"github.com/reliableworkqueue/workqueue/internal/fanout"
	"github.com/reliableworkqueue/workqueue/internal/ids"
	"github.com/reliableworkqueue/workqueue/internal/lease"
	"github.com/reliableworkqueue/workqueue/internal/logger"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
	"github.com/reliableworkqueue/workqueue/internal/scheduler"
)

func main() {
	log := logger.New("schedulerd")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	conn, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres open")
	}
	defer func() { _ = conn.Close() }()

	schedulerTick, err := time.ParseDuration(cfg.SchedulerTick)
	if err != nil {
		log.Fatal().Err(err).Msg("parse scheduler tick")
	}
	fanoutTick, err := time.ParseDuration(cfg.FanoutTick)
	if err != nil {
		log.Fatal().Err(err).Msg("parse fanout tick")
	}

	owner := ids.NewOwnerToken()
	log = logger.WithOwner(log, owner)

	outboxStore := outbox.NewPostgresStore(conn)
	leaseStore := lease.NewPostgresStore(conn)
	schedulerStore := scheduler.NewPostgresStore(conn, outboxStore)

	svc := scheduler.NewService(schedulerStore, leaseStore, scheduler.ServiceConfig{
		Owner:        owner,
		Tick:         schedulerTick,
		LeaseSeconds: cfg.SchedulerLeaseSecs,
	}, log)

	policies := fanout.NewPostgresPolicyStore(conn)
	cursors := fanout.NewPostgresCursorStore(conn)
	coordinator := fanout.NewCoordinator(policies, cursors, outboxStore)

	fanoutSvc := fanout.NewService(coordinator, conn, leaseStore, registerFanoutTargets(), fanout.ServiceConfig{
		Owner:        owner,
		Tick:         fanoutTick,
		LeaseSeconds: cfg.FanoutLeaseSecs,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return fanoutSvc.Run(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("schedulerd exit")
		os.Exit(1)
	}
}

// registerFanoutTargets lists the (fanoutTopic, workKey) pairs this process
// coordinates, along with their shard enumerators. Application code owns
// this registration; it is empty here since the core ships no business
// fanout topics of its own.
func registerFanoutTargets() []fanout.Target {
	return nil
}
