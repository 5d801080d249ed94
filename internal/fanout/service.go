package fanout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/lease"
)

// Target is one fanout topic this Service coordinates.
type Target struct {
	FanoutTopic string
	WorkKey     string
	Enumerate   ShardEnumerator
}

// ServiceConfig controls the tick cadence and lease duration of the fanout
// coordinator loop (spec §4.8, per-topic lease).
type ServiceConfig struct {
	Owner        string
	Tick         time.Duration
	LeaseSeconds int
}

func (c *ServiceConfig) setDefaults() {
	if c.Tick <= 0 {
		c.Tick = 5 * time.Second
	}
	if c.LeaseSeconds <= 0 {
		c.LeaseSeconds = 30
	}
}

// Service ticks over a set of Targets, each guarded by its own named lease
// ("fanout:<fanoutTopic>:<workKey>") so only one process coordinates a
// given topic/workKey at a time.
type Service struct {
	coordinator *Coordinator
	conn        *sql.DB
	leases      lease.Store
	targets     []Target
	cfg         ServiceConfig
	log         zerolog.Logger
}

// NewService constructs a Service.
func NewService(coordinator *Coordinator, conn *sql.DB, leases lease.Store, targets []Target, cfg ServiceConfig, log zerolog.Logger) *Service {
	cfg.setDefaults()
	return &Service{coordinator: coordinator, conn: conn, leases: leases, targets: targets, cfg: cfg, log: log}
}

// Run ticks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().Dur("tick", s.cfg.Tick).Int("targets", len(s.targets)).Msg("fanout coordinator starting")
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("fanout coordinator stopping")
			return ctx.Err()
		case <-ticker.C:
			for _, t := range s.targets {
				s.tickOne(ctx, t)
			}
		}
	}
}

func (s *Service) tickOne(ctx context.Context, t Target) {
	leaseName := "fanout:" + t.FanoutTopic + ":" + t.WorkKey
	acq, err := s.leases.Acquire(ctx, leaseName, s.cfg.Owner, s.cfg.LeaseSeconds)
	if err != nil {
		s.log.Error().Err(err).Str("fanout_topic", t.FanoutTopic).Msg("fanout lease acquire")
		return
	}
	if !acq.Acquired {
		// Acquire refuses a live lease, including our own; the holder keeps
		// it by renewing.
		if _, err := s.leases.Renew(ctx, leaseName, s.cfg.Owner, s.cfg.LeaseSeconds); err != nil {
			if !errors.Is(err, errs.ErrStaleLease) {
				s.log.Error().Err(err).Str("fanout_topic", t.FanoutTopic).Msg("fanout lease renew")
			}
			return
		}
	}

	n, err := s.coordinator.EmitDueSlices(ctx, s.conn, t.FanoutTopic, t.WorkKey, t.Enumerate, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Str("fanout_topic", t.FanoutTopic).Msg("fanout emit due slices")
		return
	}
	if n > 0 {
		s.log.Info().Str("fanout_topic", t.FanoutTopic).Str("work_key", t.WorkKey).Int("emitted", n).Msg("fanout tick")
	}
}
