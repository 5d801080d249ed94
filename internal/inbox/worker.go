package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

// Handler processes one claimed inbound message. It returns
// errs.ErrHandlerPermanent (or a wrap of it) to send the message straight
// to Dead; any other non-nil error abandons it back to Seen for a later
// claim (spec §4.2, §4.9's retry shape applied to the inbox side).
type Handler func(ctx context.Context, rec *model.InboxRecord) error

// WorkerConfig controls batch size, lease duration, and polling cadence.
type WorkerConfig struct {
	Owner        string
	BatchSize    int
	LeaseSeconds int
	PollInterval time.Duration
}

func (c *WorkerConfig) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.LeaseSeconds <= 0 {
		c.LeaseSeconds = 30
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
}

// Worker is the inbox-side counterpart to outbox.Dispatcher: it claims
// deduplicated inbound messages and routes them to a handler by topic.
type Worker struct {
	store    Store
	handlers map[string]Handler
	cfg      WorkerConfig
	log      zerolog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(store Store, handlers map[string]Handler, cfg WorkerConfig, log zerolog.Logger) *Worker {
	cfg.setDefaults()
	return &Worker{store: store, handlers: handlers, cfg: cfg, log: log}
}

// Run polls until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.PollInterval).Msg("inbox worker starting")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("inbox worker stopping")
			return ctx.Err()
		default:
		}

		n, err := w.processOnce(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("inbox worker processOnce")
		}

		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.PollInterval):
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (int, error) {
	recs, err := w.store.Claim(ctx, w.cfg.Owner, w.cfg.LeaseSeconds, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		w.processOne(ctx, rec)
	}
	return len(recs), nil
}

func (w *Worker) processOne(ctx context.Context, rec *model.InboxRecord) {
	log := w.log.With().Str("owner_token", w.cfg.Owner).Str("message_id", rec.MessageID).Logger()

	topic := ""
	if rec.Topic != nil {
		topic = *rec.Topic
	}
	handler, ok := w.handlers[topic]
	if !ok {
		log.Error().Str("topic", topic).Msg("no handler registered for topic")
		if err := w.store.MarkDead(ctx, w.cfg.Owner, []string{rec.MessageID}, "unroutable: no handler for topic"); err != nil {
			log.Error().Err(err).Msg("markDead unroutable message")
		}
		return
	}

	err := handler(ctx, rec)
	if err == nil {
		if err := w.store.Ack(ctx, w.cfg.Owner, []string{rec.MessageID}); err != nil {
			log.Error().Err(err).Msg("ack")
		}
		return
	}

	if errors.Is(err, errs.ErrHandlerPermanent) {
		if err := w.store.MarkDead(ctx, w.cfg.Owner, []string{rec.MessageID}, err.Error()); err != nil {
			log.Error().Err(err).Msg("markDead")
		}
		return
	}

	if err := w.store.Abandon(ctx, w.cfg.Owner, []string{rec.MessageID}, nil); err != nil {
		log.Error().Err(err).Msg("abandon")
	}
}
