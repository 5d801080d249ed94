package fanout

import (
	"fmt"
	"hash/fnv"
)

// deterministicJitter returns a value in [0, jitterSeconds) that is stable
// across coordinator instances for the same (shardKey, workKey, window),
// desynchronizing shards that would otherwise all come due in the same
// tick (spec §4.8).
func deterministicJitter(shardKey, workKey string, flooredWindow int64, jitterSeconds int) int64 {
	if jitterSeconds <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s|%s|%d", shardKey, workKey, flooredWindow)))
	return int64(h.Sum64() % uint64(jitterSeconds))
}
