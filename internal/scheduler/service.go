package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/lease"
)

const leaseName = "scheduler"

// ServiceConfig controls the tick cadence and lease duration of the
// scheduler loop (spec §4.7, singleton lease).
type ServiceConfig struct {
	Owner        string
	Tick         time.Duration
	LeaseSeconds int
}

func (c *ServiceConfig) setDefaults() {
	if c.Tick <= 0 {
		c.Tick = 2 * time.Second
	}
	if c.LeaseSeconds <= 0 {
		c.LeaseSeconds = 15
	}
}

// Service runs the scheduler tick under a singleton lease so at most one
// process promotes due Jobs and Timers at a time.
type Service struct {
	store  Store
	leases lease.Store
	cfg    ServiceConfig
	log    zerolog.Logger
}

// NewService constructs a Service.
func NewService(store Store, leases lease.Store, cfg ServiceConfig, log zerolog.Logger) *Service {
	cfg.setDefaults()
	return &Service{store: store, leases: leases, cfg: cfg, log: log}
}

// Run ticks until ctx is canceled. Every tick it attempts to (re)acquire the
// scheduler lease; only the instance currently holding it promotes.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().Dur("tick", s.cfg.Tick).Msg("scheduler starting")
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	acq, err := s.leases.Acquire(ctx, leaseName, s.cfg.Owner, s.cfg.LeaseSeconds)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler lease acquire")
		return
	}
	if !acq.Acquired {
		// Acquire refuses a live lease, including our own; the holder keeps
		// it by renewing.
		if _, err := s.leases.Renew(ctx, leaseName, s.cfg.Owner, s.cfg.LeaseSeconds); err != nil {
			if !errors.Is(err, errs.ErrStaleLease) {
				s.log.Error().Err(err).Msg("scheduler lease renew")
			}
			return
		}
	}

	result, err := s.store.PromoteDue(ctx, s.cfg.Owner)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler promote")
		return
	}
	if result.TimersPromoted > 0 || result.JobsPromoted > 0 {
		s.log.Info().
			Int64("timers_promoted", result.TimersPromoted).
			Int64("jobs_promoted", result.JobsPromoted).
			Msg("scheduler tick")
	}
}
