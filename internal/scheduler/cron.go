package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextDueTime returns the next activation of cronSchedule strictly after
// from, using the same standard five-field cron grammar the rest of the
// ecosystem expects (seconds field omitted).
func nextDueTime(cronSchedule string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(cronSchedule)
	if err != nil {
		return time.Time{}, errors.Wrapf(errs.ErrValidation, "invalid cron schedule %q: %s", cronSchedule, err)
	}
	return sched.Next(from), nil
}
