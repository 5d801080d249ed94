package semaphore

import (
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9\-_:/.]{1,200}$`)

// Bounds configures the validation limits of spec §4.6.
type Bounds struct {
	MaxTTL   time.Duration
	MaxLimit int
}

func DefaultBounds() Bounds {
	return Bounds{MaxTTL: time.Hour, MaxLimit: 10000}
}

func (b Bounds) validateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.Wrapf(errs.ErrValidation, "name %q does not match required pattern", name)
	}
	return nil
}

func (b Bounds) validateOwnerID(ownerID string) error {
	if ownerID == "" || len(ownerID) > 200 {
		return errors.Wrap(errs.ErrValidation, "ownerID must be 1-200 chars")
	}
	return nil
}

func (b Bounds) validateTTL(ttl time.Duration) error {
	if ttl <= 0 || ttl > b.MaxTTL {
		return errors.Wrapf(errs.ErrValidation, "ttl must be within (0, %s]", b.MaxTTL)
	}
	return nil
}

func (b Bounds) validateLimit(limit int) error {
	if limit < 1 || limit > b.MaxLimit {
		return errors.Wrapf(errs.ErrValidation, "limit must be within [1, %d]", b.MaxLimit)
	}
	return nil
}
