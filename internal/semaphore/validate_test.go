package semaphore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	b := DefaultBounds()
	assert.NoError(t, b.validateName("orders:shard-1"))
	assert.Error(t, b.validateName(""))
	assert.Error(t, b.validateName("has a space"))
}

func TestValidateTTL(t *testing.T) {
	b := DefaultBounds()
	assert.NoError(t, b.validateTTL(time.Minute))
	assert.Error(t, b.validateTTL(0))
	assert.Error(t, b.validateTTL(2*time.Hour))
}

func TestValidateLimit(t *testing.T) {
	b := DefaultBounds()
	assert.NoError(t, b.validateLimit(5))
	assert.Error(t, b.validateLimit(0))
	assert.Error(t, b.validateLimit(b.MaxLimit+1))
}
