package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bankcore/internal/core"
)

// DefaultDueLookahead realizes definitions due tomorrow on today's run, so
// a transfer lands no later than its due date. Zero means same-day only.
const DefaultDueLookahead = 24 * time.Hour

// DueCutoff is the last calendar day, as observed in loc, whose definitions
// a run at now picks up.
func DueCutoff(now time.Time, lookahead time.Duration, loc *time.Location) core.Date {
	if lookahead < 0 {
		lookahead = 0
	}
	return core.DateOf(now.Add(lookahead), loc)
}

// NextDueDate is the due date following a realization on d: one calendar
// month later, clamped to the end of shorter months.
func NextDueDate(d core.Date) core.Date {
	return d.AddMonths(1)
}

// DailyTrigger fires once a day at a fixed wall-clock time.
type DailyTrigger struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseDailyTrigger parses "HH:MM" in 24-hour form.
func ParseDailyTrigger(s string, loc *time.Location) (DailyTrigger, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DailyTrigger{}, fmt.Errorf("invalid run time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return DailyTrigger{}, fmt.Errorf("invalid hour in run time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return DailyTrigger{}, fmt.Errorf("invalid minute in run time %q", s)
	}
	if loc == nil {
		loc = time.Local
	}
	return DailyTrigger{Hour: h, Minute: m, Location: loc}, nil
}

// NextRun returns the first fire time strictly after now.
func (t DailyTrigger) NextRun(now time.Time) time.Time {
	loc := t.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, t.Hour, t.Minute, 0, 0, loc)
	}
	return next
}

func (t DailyTrigger) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
