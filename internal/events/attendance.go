// Package events defines the attendance event payloads emitted by the clock client.
package events

import (
	"context"
	"time"
)

// Event types carried in the event_type header.
const (
	TypeSessionStateChanged = "attendance.session_state_changed"
	TypeBreakStateChanged   = "attendance.break_state_changed"
	TypeSignedOut           = "attendance.signed_out"
)

// Outcome qualifies a session transition.
type Outcome string

const (
	OutcomeOptimistic Outcome = "optimistic"
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeReconciled Outcome = "reconciled"
)

// Event is a payload that can be routed to the event stream.
type Event interface {
	EventType() string
	PartitionKey() string
}

// Publisher accepts events for delivery. Implementations must not block on the network:
// callers publish while holding their state lock.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// SessionStateChanged tracks clock state transitions (optimistic, confirmed, rolled back) for a worker.
type SessionStateChanged struct {
	EventID    string     `json:"event_id"`
	Username   string     `json:"username"`
	SessionID  string     `json:"session_id,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Outcome    Outcome    `json:"outcome"`
	ClockIn    *time.Time `json:"clock_in,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	Reason     string     `json:"reason,omitempty"`
}

func (e SessionStateChanged) EventType() string    { return TypeSessionStateChanged }
func (e SessionStateChanged) PartitionKey() string { return e.Username }

// BreakStateChanged records a break starting, ending early, running out, or being cleared.
type BreakStateChanged struct {
	EventID          string    `json:"event_id"`
	Username         string    `json:"username"`
	State            string    `json:"state"`
	RemainingSeconds int       `json:"remaining_seconds"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (e BreakStateChanged) EventType() string    { return TypeBreakStateChanged }
func (e BreakStateChanged) PartitionKey() string { return e.Username }

// SignedOut is emitted when a worker is logged out, either explicitly or after inactivity.
type SignedOut struct {
	EventID          string    `json:"event_id"`
	Username         string    `json:"username"`
	Reason           string    `json:"reason"`
	ImplicitClockOut bool      `json:"implicit_clock_out"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (e SignedOut) EventType() string    { return TypeSignedOut }
func (e SignedOut) PartitionKey() string { return e.Username }
