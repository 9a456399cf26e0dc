package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trigger is a fixed wall-clock time, daily or on one weekday.
type Trigger struct {
	Weekly  bool
	Weekday time.Weekday
	Hour    int
	Minute  int
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseTrigger accepts "HH:MM" (daily) or "<day> HH:MM" (weekly), where day
// is a three-letter English weekday.
func ParseTrigger(s string) (Trigger, error) {
	var t Trigger
	fields := strings.Fields(strings.ToLower(s))
	switch len(fields) {
	case 1:
	case 2:
		wd, ok := weekdays[fields[0]]
		if !ok {
			return Trigger{}, fmt.Errorf("invalid weekday in %q", s)
		}
		t.Weekly, t.Weekday = true, wd
		fields = fields[1:]
	default:
		return Trigger{}, fmt.Errorf("invalid trigger %q (expected HH:MM or day HH:MM)", s)
	}

	parts := strings.SplitN(fields[0], ":", 2)
	if len(parts) != 2 {
		return Trigger{}, fmt.Errorf("invalid trigger %q (expected HH:MM)", s)
	}
	hour, errH := strconv.Atoi(parts[0])
	min, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return Trigger{}, fmt.Errorf("invalid trigger time %q", s)
	}
	t.Hour, t.Minute = hour, min
	return t, nil
}

// Next returns the first firing strictly after now, in loc.
func (t Trigger) Next(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, loc)
	if t.Weekly {
		days := (int(t.Weekday) - int(now.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, days)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	}
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (t Trigger) String() string {
	if t.Weekly {
		return fmt.Sprintf("%s %02d:%02d", strings.ToLower(t.Weekday.String()[:3]), t.Hour, t.Minute)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
