// Package domain defines the attendance model shared by the clock client and the development API.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Shift names the part of the day a task or session is assigned to.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

// Shifts lists the valid shifts in display order.
var Shifts = []Shift{ShiftMorning, ShiftAfternoon, ShiftNight}

// Valid reports whether s is one of the known shifts.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// ParseShift normalises user input into a Shift.
func ParseShift(raw string) (Shift, error) {
	shift := Shift(strings.ToLower(strings.TrimSpace(raw)))
	if shift == "" {
		return "", &ValidationError{Field: "shift", Reason: "a shift must be selected"}
	}
	if !shift.Valid() {
		return "", &ValidationError{Field: "shift", Reason: fmt.Sprintf("unknown shift %q", raw)}
	}
	return shift, nil
}

// ClockRecord is one historical clock-in/clock-out interval owned by the remote store.
// It is immutable once ClockOut is set.
type ClockRecord struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	TaskID        string     `json:"task_id"`
	TaskTitle     string     `json:"task_title,omitempty"`
	ClockIn       time.Time  `json:"clock_in"`
	ClockOut      *time.Time `json:"clock_out,omitempty"`
	Note          string     `json:"note,omitempty"`
	AssignedShift Shift      `json:"assigned_shift"`
}

// Open reports whether the record has not been clocked out yet.
func (r ClockRecord) Open() bool {
	return r.ClockOut == nil
}

// SessionPhase distinguishes a locally applied session from a server-confirmed one.
type SessionPhase string

const (
	PhaseOptimistic SessionPhase = "optimistic"
	PhaseConfirmed  SessionPhase = "confirmed"
)

// ActiveSession is the in-progress work interval of the signed-in worker.
type ActiveSession struct {
	LocalID       string
	TaskID        string
	ClockIn       time.Time
	Shift         Shift
	Note          string
	AssignedShift Shift
	Phase         SessionPhase
}

// ActiveClock is the remote store's authoritative view of the worker's open session.
type ActiveClock struct {
	IsActive      bool
	TaskID        string
	ClockIn       time.Time
	Shift         Shift
	Note          string
	AssignedShift Shift
}

// ClockInOptions carries the optional clock-in fields sent with the task id.
type ClockInOptions struct {
	Shift         Shift
	Note          string
	AssignedShift Shift
}

// ClockInResult holds the server-confirmed fields of a clock-in.
type ClockInResult struct {
	ClockIn       time.Time
	TaskID        string
	AssignedShift Shift
}

// Task is a unit of work a worker can clock in against.
type Task struct {
	ID            string `json:"id"`
	Title         string `json:"task_title"`
	AssignedShift Shift  `json:"assigned_shift"`
}

// Points is the worker's reward balance. Its computation is owned by the remote store.
type Points struct {
	Total     int `json:"total_points"`
	Available int `json:"available_points"`
	Redeemed  int `json:"redeemed_points"`
}

// DailyWorkSummary is derived from history and the live session; it is never stored.
type DailyWorkSummary struct {
	Hours        float64
	FirstClockIn *time.Time
	LastClockOut *time.Time
}

// DayTotal aggregates the records whose clock-in falls on Day.
type DayTotal struct {
	Day     time.Time
	Hours   float64
	Records []ClockRecord
}

// AttendanceAPI is the remote attendance store consumed by the clock session.
type AttendanceAPI interface {
	ActiveClock(ctx context.Context) (ActiveClock, error)
	ClockIn(ctx context.Context, taskID string, opts ClockInOptions) (ClockInResult, error)
	ClockOut(ctx context.Context, taskID string) error
	ClockHistory(ctx context.Context) ([]ClockRecord, error)
	UserTasks(ctx context.Context) ([]Task, error)
	UserPoints(ctx context.Context) (Points, error)
	Logout(ctx context.Context) error
}
