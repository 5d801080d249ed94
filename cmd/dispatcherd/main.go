// Command dispatcherd runs the outbox dispatcher, the inbox claim worker,
// and their reapers and cleanup loops in one process (spec §4.9).
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
	"github.com/reliableworkqueue/workqueue/internal/health"
	"github.com/reliableworkqueue/workqueue/internal/ids"
	"github.com/reliableworkqueue/workqueue/internal/inbox"
	"github.com/reliableworkqueue/workqueue/internal/logger"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
	"github.com/reliableworkqueue/workqueue/internal/reaper"
)

func main() {
	log := logger.New("dispatcherd")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	conn, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres open")
	}
	defer func() { _ = conn.Close() }()

	pollInterval, err := time.ParseDuration(cfg.PollInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("parse poll interval")
	}
	reapInterval, err := time.ParseDuration(cfg.ReapInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("parse reap interval")
	}
	outboxRetention, err := time.ParseDuration(cfg.OutboxRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("parse outbox retention")
	}
	inboxRetention, err := time.ParseDuration(cfg.InboxRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("parse inbox retention")
	}

	owner := ids.NewOwnerToken()
	log = logger.WithOwner(log, owner)

	outboxStore := outbox.NewPostgresStore(conn)
	inboxStore := inbox.NewPostgresStore(conn)

	dispatcher := outbox.NewDispatcher(outboxStore, registerHandlers(), outbox.DispatcherConfig{
		Owner:        owner,
		BatchSize:    cfg.DispatchBatchSize,
		LeaseSeconds: cfg.DispatchLeaseSecs,
		PollInterval: pollInterval,
		Concurrency:  cfg.DispatchConcurrency,
		MaxAttempts:  cfg.DispatchMaxAttempts,
		BackoffCap:   time.Duration(cfg.DispatchBackoffCap) * time.Second,
	}, log)

	inboxWorker := inbox.NewWorker(inboxStore, registerInboxHandlers(), inbox.WorkerConfig{
		Owner:        owner,
		BatchSize:    cfg.DispatchBatchSize,
		LeaseSeconds: cfg.DispatchLeaseSecs,
		PollInterval: pollInterval,
	}, log)

	dbChecker := health.NewDBChecker("postgres", conn)
	svcHealth := health.NewServiceHealthChecker(log, dbChecker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return inboxWorker.Run(gctx) })
	g.Go(func() error {
		dbChecker.Start(gctx, reapInterval)
		return nil
	})
	g.Go(func() error {
		svcHealth.Start(gctx, reapInterval)
		return nil
	})
	g.Go(func() error {
		return reaper.NewLoop("outbox", func(ctx context.Context) (int64, error) {
			return outboxStore.Reap(ctx)
		}, reapInterval, log).Run(gctx)
	})
	g.Go(func() error {
		return reaper.NewLoop("inbox", func(ctx context.Context) (int64, error) {
			return inboxStore.Reap(ctx)
		}, reapInterval, log).Run(gctx)
	})
	g.Go(func() error {
		return reaper.NewLoop("outbox-cleanup", func(ctx context.Context) (int64, error) {
			return outboxStore.Cleanup(ctx, outboxRetention)
		}, outboxRetention, log).Run(gctx)
	})
	g.Go(func() error {
		return reaper.NewLoop("inbox-cleanup", func(ctx context.Context) (int64, error) {
			return inboxStore.Cleanup(ctx, inboxRetention)
		}, inboxRetention, log).Run(gctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("dispatcherd exit")
		os.Exit(1)
	}
}

// registerHandlers is the topic -> Handler routing table for the outbox
// dispatcher. Application code owns this registration; it is stubbed here
// since the core ships no business topics of its own.
func registerHandlers() map[string]outbox.Handler {
	return map[string]outbox.Handler{}
}

func registerInboxHandlers() map[string]inbox.Handler {
	return map[string]inbox.Handler{}
}
