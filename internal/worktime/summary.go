// Package worktime derives worked-time figures from clock history.
// Every function here is pure: identical inputs produce identical outputs.
package worktime

import (
	"time"

	"example.com/laborsync/internal/domain"
)

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Summarize computes the worked-today summary from history records with a clock-in at or
// after dayStart, plus the active session when it also started today.
//
// Open intervals end at now. Overlapping intervals are summed as-is; per-worker history is
// assumed not to overlap. LastClockOut is only reported while no interval of the day is open.
func Summarize(history []domain.ClockRecord, active *domain.ActiveSession, now, dayStart time.Time) domain.DailyWorkSummary {
	var (
		total     time.Duration
		firstIn   time.Time
		lastOut   time.Time
		anyOpen   bool
		seenToday bool
	)

	observeIn := func(in time.Time) {
		if !seenToday || in.Before(firstIn) {
			firstIn = in
		}
		seenToday = true
	}

	for _, record := range history {
		if record.ClockIn.Before(dayStart) {
			continue
		}
		observeIn(record.ClockIn)
		if record.Open() {
			anyOpen = true
			total += span(record.ClockIn, now)
			continue
		}
		out := *record.ClockOut
		total += span(record.ClockIn, out)
		if out.After(lastOut) {
			lastOut = out
		}
	}

	if active != nil && !active.ClockIn.Before(dayStart) && !containsOpen(history, active) {
		observeIn(active.ClockIn)
		anyOpen = true
		total += span(active.ClockIn, now)
	}

	summary := domain.DailyWorkSummary{Hours: total.Hours()}
	if seenToday {
		in := firstIn
		summary.FirstClockIn = &in
	}
	if !anyOpen && !lastOut.IsZero() {
		out := lastOut
		summary.LastClockOut = &out
	}
	return summary
}

// span is the non-negative length of [from, to].
func span(from, to time.Time) time.Duration {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from)
}

// containsOpen reports whether history already carries the open record of the active session.
func containsOpen(history []domain.ClockRecord, active *domain.ActiveSession) bool {
	for _, record := range history {
		if record.Open() && record.TaskID == active.TaskID && record.ClockIn.Equal(active.ClockIn) {
			return true
		}
	}
	return false
}
