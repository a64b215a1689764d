package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// triggerParser accepts standard 5-field cron expressions. Minute resolution
// only; dow numbering is cron's (0 = Sunday).
var triggerParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Trigger decides whether a wall-clock minute is a firing minute for a job.
type Trigger struct {
	expr  string
	sched cron.Schedule
}

// ParseTrigger parses a 5-field cron expression into a Trigger.
func ParseTrigger(expr string) (Trigger, error) {
	sched, err := triggerParser.Parse(expr)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid trigger expression %q: %w", expr, err)
	}
	return Trigger{expr: expr, sched: sched}, nil
}

// DailyAt fires every day at hour:minute.
func DailyAt(hour, minute int) Trigger {
	t, _ := ParseTrigger(fmt.Sprintf("%d %d * * *", minute, hour))
	return t
}

// WeeklyAt fires once a week at hour:minute on the given weekday.
func WeeklyAt(day time.Weekday, hour, minute int) Trigger {
	t, _ := ParseTrigger(fmt.Sprintf("%d %d * * %d", minute, hour, int(day)))
	return t
}

// Matches reports whether the minute containing now is a firing minute.
// It holds for the whole minute, so callers must tick at most once per minute
// for at-most-once firing.
func (t Trigger) Matches(now time.Time) bool {
	minute := now.Truncate(time.Minute)
	return t.sched.Next(minute.Add(-time.Second)).Equal(minute)
}

// Next returns the first firing instant after now.
func (t Trigger) Next(now time.Time) time.Time {
	return t.sched.Next(now)
}

func (t Trigger) String() string {
	return t.expr
}
