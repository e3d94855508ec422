package timeutil

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// LoadLocation resolves an IANA zone name, falling back to UTC when the
// name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NextDailyRun returns the next hour:00 in loc strictly after now.
func NextDailyRun(now time.Time, hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	next := time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, loc)
	if !n.Before(next) {
		next = time.Date(n.Year(), n.Month(), n.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

// DaysSince returns the number of whole days between t and now, rounded down.
// Timestamps in the future count as zero days.
func DaysSince(t, now time.Time) int {
	secs := now.Unix() - t.Unix()
	if secs <= 0 {
		return 0
	}
	return int(secs / secondsPerDay)
}

// DaysAgo returns the instant exactly days*24h before now.
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * secondsPerDay * time.Second)
}

func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
