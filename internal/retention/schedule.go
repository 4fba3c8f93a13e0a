package retention

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next wake time strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
}

// Monthly fires on the first day of every month at 00:05 in t's location.
type Monthly struct{}

func (Monthly) Next(t time.Time) time.Time {
	// time.Date normalizes month 13 into January of the following year.
	return time.Date(t.Year(), t.Month()+1, 1, 0, 5, 0, 0, t.Location())
}

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule returns Monthly for an empty expression, otherwise a cron schedule.
func ParseSchedule(expr string) (Schedule, error) {
	if expr == "" {
		return Monthly{}, nil
	}
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", expr, err)
	}
	if s.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("retention schedule %q never fires", expr)
	}
	return s, nil
}
