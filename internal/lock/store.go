// Package lock implements the fenced distributed lock (spec §4.4): one row
// per resourceName, with a strictly monotonic fencing token that downstream
// writers must present to reject stale writes.
package lock

import (
	"context"
	"time"
)

// AcquireResult carries the ownership token and fencing token granted by a
// successful acquire or renew.
type AcquireResult struct {
	Acquired     bool
	OwnerToken   string
	FencingToken int64
	LeaseUntil   time.Time
}

// Store is the persistence surface for the distributed lock.
type Store interface {
	// Acquire grants ownership of name if it is free or expired, minting a
	// fresh owner token and bumping the fencing token.
	Acquire(ctx context.Context, name string, leaseSeconds int, contextJSON string) (*AcquireResult, error)

	// Renew extends an existing, still-valid ownership, bumping the
	// fencing token.
	Renew(ctx context.Context, name, ownerToken string, leaseSeconds int) (*AcquireResult, error)

	// Release clears ownership if ownerToken matches the current holder.
	Release(ctx context.Context, name, ownerToken string) error

	// CleanupExpired nulls the owner on any row whose lease has expired.
	CleanupExpired(ctx context.Context) (int64, error)
}
