// Package reaper runs one generic ticking loop per reapable resource,
// recovering rows whose lease expired without an ack (spec §5
// "Cancellation": in-flight claimed rows are not rolled back; they are
// reaped by the expired-lease reaper).
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reapable is any store operation that reclaims expired leases and reports
// how many rows it reclaimed. outbox.Store.Reap, inbox.Store.Reap and
// lock.Store.CleanupExpired have this shape; semaphore.Store.Reap takes a
// name and a row limit, so it needs a closure to fit.
type Reapable func(ctx context.Context) (int64, error)

// Loop ticks a single Reapable on an interval until ctx is canceled.
type Loop struct {
	name     string
	reap     Reapable
	interval time.Duration
	log      zerolog.Logger
}

// NewLoop constructs a Loop. name identifies the resource in log lines.
func NewLoop(name string, reap Reapable, interval time.Duration, log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Loop{name: name, reap: reap, interval: interval, log: log}
}

// Run ticks until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Str("resource", l.name).Dur("interval", l.interval).Msg("reaper starting")
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Str("resource", l.name).Msg("reaper stopping")
			return ctx.Err()
		case <-ticker.C:
			n, err := l.reap(ctx)
			if err != nil {
				l.log.Error().Err(err).Str("resource", l.name).Msg("reap")
				continue
			}
			if n > 0 {
				l.log.Info().Str("resource", l.name).Int64("reaped", n).Msg("reaped expired leases")
			}
		}
	}
}
