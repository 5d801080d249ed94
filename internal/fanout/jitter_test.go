package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicJitter_StableAndBounded(t *testing.T) {
	j1 := deterministicJitter("shard-1", "work-a", 1000, 30)
	j2 := deterministicJitter("shard-1", "work-a", 1000, 30)
	assert.Equal(t, j1, j2, "same inputs must produce the same jitter")
	assert.GreaterOrEqual(t, j1, int64(0))
	assert.Less(t, j1, int64(30))
}

func TestDeterministicJitter_VariesByShard(t *testing.T) {
	j1 := deterministicJitter("shard-1", "work-a", 1000, 30)
	j2 := deterministicJitter("shard-2", "work-a", 1000, 30)
	assert.NotEqual(t, j1, j2, "different shards should usually desynchronize")
}

func TestDeterministicJitter_ZeroWhenDisabled(t *testing.T) {
	assert.Equal(t, int64(0), deterministicJitter("shard-1", "work-a", 1000, 0))
}
