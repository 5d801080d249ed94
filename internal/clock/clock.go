// Package clock provides the single time source permitted inside the core.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the uniform time source described in spec §2 component 1.
// No store or service in this module takes a Clock: lease predicates are
// evaluated with the database's now() inside SQL, and the remaining Go-side
// time values (job due times, fanout ticks, semaphore expiry) come from
// time.Now() directly.
type Clock = clockwork.Clock

// New returns the real wall-clock implementation.
func New() Clock {
	return clockwork.NewRealClock()
}

// NewFake returns a controllable clock for tests, starting at t.
func NewFake(t time.Time) clockwork.FakeClock {
	return clockwork.NewFakeClockAt(t)
}
