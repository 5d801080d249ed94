package outbox

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

// Handler processes one claimed message. It returns errs.ErrHandlerPermanent
// (or a wrap of it) to force immediate termination without retries; any
// other non-nil error is treated as HandlerTransient and retried with
// backoff (spec §4.9, §7).
type Handler func(ctx context.Context, msg *model.OutboxMessage) error

// DispatcherConfig controls batch size, lease duration, polling cadence,
// and concurrency (spec §4.9 point 5).
type DispatcherConfig struct {
	Owner        string
	BatchSize    int
	LeaseSeconds int
	PollInterval time.Duration
	Concurrency  int
	MaxAttempts  int
	BackoffCap   time.Duration
}

func (c *DispatcherConfig) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.LeaseSeconds <= 0 {
		c.LeaseSeconds = 30
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 5 * time.Minute
	}
}

// Dispatcher is the background worker loop described in spec §4.9: it
// claims batches, routes each message to a handler by topic, and acks,
// reschedules, or fails depending on the outcome.
type Dispatcher struct {
	store    Store
	handlers map[string]Handler
	cfg      DispatcherConfig
	log      zerolog.Logger
}

// NewDispatcher constructs a Dispatcher. Handlers are registered per-topic
// up front; handlers must be instance-scoped and thread-safe (spec §9).
func NewDispatcher(store Store, handlers map[string]Handler, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{store: store, handlers: handlers, cfg: cfg, log: log}
}

// Run polls until ctx is canceled, honoring cancellation at every
// suspension point: before claiming, between handler invocations, and
// around sleeps (spec §5).
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Int("batch", d.cfg.BatchSize).Dur("interval", d.cfg.PollInterval).Msg("outbox dispatcher starting")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("outbox dispatcher stopping")
			return ctx.Err()
		default:
		}

		n, err := d.processOnce(ctx)
		if err != nil {
			d.log.Error().Err(err).Msg("dispatcher processOnce")
		}

		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollInterval):
			}
		}
	}
}

func (d *Dispatcher) processOnce(ctx context.Context) (int, error) {
	msgs, err := d.store.ClaimDue(ctx, d.cfg.Owner, d.cfg.LeaseSeconds, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		m := m
		g.Go(func() error {
			d.dispatchOne(gctx, m)
			return nil
		})
	}
	_ = g.Wait()
	return len(msgs), nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, m *model.OutboxMessage) {
	log := d.log.With().Str("owner_token", d.cfg.Owner).Str("topic", m.Topic).Str("id", m.ID).Logger()
	if m.CorrelationID != nil {
		log = log.With().Str("correlation_id", *m.CorrelationID).Logger()
	}

	handler, ok := d.handlers[m.Topic]
	if !ok {
		log.Error().Msg("no handler registered for topic")
		if err := d.store.Fail(ctx, m.ID, d.cfg.Owner, "unroutable: no handler for topic"); err != nil {
			log.Error().Err(err).Msg("fail unroutable message")
		}
		return
	}

	err := handler(ctx, m)
	if err == nil {
		if err := d.store.MarkDispatched(ctx, m.ID, d.cfg.Owner); err != nil {
			log.Error().Err(err).Msg("markDispatched")
		}
		return
	}

	if errIsPermanent(err) || m.RetryCount+1 >= d.cfg.MaxAttempts {
		if err := d.store.Fail(ctx, m.ID, d.cfg.Owner, err.Error()); err != nil {
			log.Error().Err(err).Msg("fail")
		}
		return
	}

	delay := backoffDelay(m.RetryCount+1, d.cfg.BackoffCap)
	if err := d.store.Reschedule(ctx, m.ID, d.cfg.Owner, delay, err.Error()); err != nil {
		log.Error().Err(err).Msg("reschedule")
	}
}

func errIsPermanent(err error) bool {
	return err != nil && (err == errs.ErrHandlerPermanent || wrapsErr(err, errs.ErrHandlerPermanent))
}

func wrapsErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// backoffDelay implements spec §4.1's default min(cap, 2^retryCount) seconds
// using cenkalti/backoff's exponential backoff with randomization disabled so
// the sequence is deterministic: 1s, 2s, 4s, 8s, ... capped at cap.
func backoffDelay(retryCount int, cap time.Duration) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = cap
	eb.MaxElapsedTime = 0
	eb.Reset()

	d := eb.NextBackOff()
	for i := 0; i < retryCount; i++ {
		d = eb.NextBackOff()
	}
	if d == backoff.Stop || d > cap {
		return cap
	}
	return d
}
