// Package lease implements the named lease (spec §4.5): coarser than
// lock.Store, used for singleton background loops (scheduler, fanout
// coordinator). The owner is caller-chosen so the same owner can
// re-acquire its own expired lease without rotating identity, and there is
// no fencing token.
package lease

import (
	"context"
	"time"
)

// AcquireResult reports whether the caller now holds the lease.
type AcquireResult struct {
	Acquired   bool
	LeaseUntil time.Time
}

// Store is the persistence surface for named leases.
type Store interface {
	// Acquire creates the row if missing, then grants it to owner only
	// when the row is unheld or expired.
	Acquire(ctx context.Context, name, owner string, leaseSeconds int) (*AcquireResult, error)

	// Renew extends owner's lease only while owner still holds it
	// unexpired.
	Renew(ctx context.Context, name, owner string, leaseSeconds int) (*AcquireResult, error)

	// Release clears ownership if owner matches the current holder.
	Release(ctx context.Context, name, owner string) error
}
