// Package logger provides a configured zerolog logger.
package logger

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a new zerolog.Logger configured for the application.
// Call sites should use .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	// Configure zerolog to work with github.com/pkg/errors:
	// - Automatically marshal pkg/errors stack traces when present
	// - Ensure a stack is present even for std errors when .Stack() is used
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// WithResource returns a child logger tagged with the resource name a
// coordination primitive (lock/lease/semaphore) is operating on, per the
// structured-logging contract in spec §6.
func WithResource(log zerolog.Logger, resource string) zerolog.Logger {
	return log.With().Str("resource", resource).Logger()
}

// WithOwner returns a child logger tagged with the claiming owner token.
func WithOwner(log zerolog.Logger, owner string) zerolog.Logger {
	return log.With().Str("owner_token", owner).Logger()
}

// WithCorrelation returns a child logger tagged with a correlation id.
func WithCorrelation(log zerolog.Logger, correlationID string) zerolog.Logger {
	if correlationID == "" {
		return log
	}
	return log.With().Str("correlation_id", correlationID).Logger()
}
