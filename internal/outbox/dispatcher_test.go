package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_DeterministicExponential(t *testing.T) {
	cap := 60 * time.Second

	assert.Equal(t, 1*time.Second, backoffDelay(0, cap))
	assert.Equal(t, 2*time.Second, backoffDelay(1, cap))
	assert.Equal(t, 4*time.Second, backoffDelay(2, cap))
	assert.Equal(t, 8*time.Second, backoffDelay(3, cap))
}

func TestBackoffDelay_CapsAtMax(t *testing.T) {
	cap := 5 * time.Second
	assert.Equal(t, cap, backoffDelay(10, cap))
}

func TestWrapsErr(t *testing.T) {
	target := assertErr{"boom"}
	wrapped := wrapErr{target}
	assert.True(t, wrapsErr(wrapped, target))
	assert.False(t, wrapsErr(assertErr{"other"}, target))
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

type wrapErr struct{ err error }

func (e wrapErr) Error() string { return "wrapped: " + e.err.Error() }
func (e wrapErr) Unwrap() error { return e.err }
