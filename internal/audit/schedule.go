package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextDelay returns the time from now until the schedule next fires.
func nextDelay(sched cron.Schedule, now time.Time) time.Duration {
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Loop runs the audit on the given 5-field cron schedule until ctx is
// cancelled. Run errors are logged and do not stop the loop.
func (a *Auditor) Loop(ctx context.Context, expr string) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("audit: parse schedule %q: %w", expr, err)
	}
	a.log.WithField("schedule", expr).Info("audit: scheduled")
	for {
		timer := time.NewTimer(nextDelay(sched, time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if _, err := a.Run(ctx); err != nil {
			a.log.WithError(err).Warn("audit: scheduled run failed")
		}
	}
}
