package analysis

import (
	"time"

	"github.com/yair/merchpulse/pkg/normalize"
)

// ProductionWindow suggests when to start producing merchandise for an event
// and when it must be ready. Dates are calendar days in Brazilian time and
// neither is ever before today.
func ProductionWindow(eventDate time.Time, potential float64, today time.Time) (start, deadline time.Time) {
	lead, cutoff := 21, 10
	switch {
	case potential >= 70:
		lead, cutoff = 45, 21
	case potential >= 40:
		lead, cutoff = 30, 14
	}

	day := calendarDay(eventDate)
	start = day.AddDate(0, 0, -lead)
	deadline = day.AddDate(0, 0, -cutoff)

	floor := calendarDay(today)
	if start.Before(floor) {
		start = floor
	}
	if deadline.Before(floor) {
		deadline = floor
	}
	return start, deadline
}

func calendarDay(t time.Time) time.Time {
	t = t.In(normalize.BRT)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, normalize.BRT)
}
