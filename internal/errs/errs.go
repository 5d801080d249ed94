// Package errs defines the error taxonomy shared by every coordination
// primitive in the core (spec §7). Kinds are sentinel errors: callers use
// errors.Is against these to branch on handling, and wrap them with
// fmt.Errorf("...: %w", ...) or pkgerrors.Wrap to add context.
package errs

import "errors"

var (
	// ErrValidation: input did not meet a named constraint. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotAcquired: resource is at capacity or held. A result, not a fault.
	ErrNotAcquired = errors.New("not acquired")

	// ErrUnavailable: backing store could not be reached or the transaction
	// aborted. Callers may retry.
	ErrUnavailable = errors.New("store unavailable")

	// ErrStaleLease: an operation required an unexpired ownership and had
	// none. The work is deemed lost; a reaper will recover it.
	ErrStaleLease = errors.New("stale lease")

	// ErrHandlerTransient: a handler signalled a retryable failure.
	ErrHandlerTransient = errors.New("handler transient failure")

	// ErrHandlerPermanent: a handler signalled an unretryable failure, or
	// retries are exhausted.
	ErrHandlerPermanent = errors.New("handler permanent failure")

	// ErrConflict: concurrent modification detected (a fencing token lower
	// than expected, or a serializable abort). Callers may retry.
	ErrConflict = errors.New("conflict")

	// ErrNotFound: no row exists for the given key. Used internally by
	// stores; surfaced to callers as part of the above kinds where the
	// spec requires it (e.g. a missing Semaphore is Unavailable, §4.6).
	ErrNotFound = errors.New("not found")
)
