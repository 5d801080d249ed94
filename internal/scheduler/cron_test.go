package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDueTime_HourlySchedule(t *testing.T) {
	from := time.Date(2026, 7, 30, 10, 15, 0, 0, time.UTC)
	next, err := nextDueTime("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 30, 11, 0, 0, 0, time.UTC), next)
}

func TestNextDueTime_InvalidSchedule(t *testing.T) {
	_, err := nextDueTime("not a cron schedule", time.Now())
	assert.Error(t, err)
}
