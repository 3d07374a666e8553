// Package presenter turns attendance data into display strings. It holds no state.
package presenter

import (
	"fmt"
	"time"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/session"
)

// Placeholder is shown for absent values.
const Placeholder = "--"

const (
	timestampLayout = "1/2/2006, 3:04:05 PM"
	dayLayout       = "Mon 1/2/2006"
	timeLayout      = "3:04 PM"
)

// FormatTimestamp renders t in its own location.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format(timestampLayout)
}

// FormatOptionalTimestamp renders t, or the placeholder when absent.
func FormatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return Placeholder
	}
	return FormatTimestamp(*t)
}

// FormatHours renders an hour total with one decimal.
func FormatHours(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf("%.1f hrs", hours)
}

// FormatDuration renders the length of a record, or "Pending" while it is open.
func FormatDuration(record domain.ClockRecord) string {
	if record.ClockOut == nil {
		return "Pending"
	}
	return FormatHours(record.ClockOut.Sub(record.ClockIn).Hours())
}

// Status is "Completed" once a record has a clock-out and "Active" before.
func Status(record domain.ClockRecord) string {
	if record.ClockOut == nil {
		return "Active"
	}
	return "Completed"
}

// FormatCountdown renders whole seconds as MM:SS.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ShiftLabel capitalises a shift name.
func ShiftLabel(shift domain.Shift) string {
	switch shift {
	case domain.ShiftMorning:
		return "Morning"
	case domain.ShiftAfternoon:
		return "Afternoon"
	case domain.ShiftNight:
		return "Night"
	case "":
		return Placeholder
	}
	return string(shift)
}

// StateLabel describes a session state for the status line.
func StateLabel(state session.State) string {
	switch state {
	case session.StateClockedOut:
		return "Clocked out"
	case session.StateClockingIn:
		return "Clocking in..."
	case session.StateClockedIn:
		return "Clocked in"
	case session.StateClockingOut:
		return "Clocking out..."
	}
	return "Checking status..."
}
