package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/session"
)

// WorkerStatus is the latest known attendance state of one worker.
type WorkerStatus struct {
	Username  string     `json:"username"`
	SignedIn  bool       `json:"signed_in"`
	State     string     `json:"state"`
	Confirmed bool       `json:"confirmed"`
	TaskID    string     `json:"task_id,omitempty"`
	ClockIn   *time.Time `json:"clock_in,omitempty"`
	OnBreak   bool       `json:"on_break"`
	Rollbacks int        `json:"rollbacks"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Ledger folds attendance events into per-worker status. Events older than the worker's last
// applied event are ignored, which also absorbs redelivery after a failed commit.
type Ledger struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers map[string]*WorkerStatus
	seen    map[string]string
}

// NewLedger constructs an empty Ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		logger:  logger,
		workers: make(map[string]*WorkerStatus),
		seen:    make(map[string]string),
	}
}

// Handle applies one attendance event. Unknown event types are skipped.
func (l *Ledger) Handle(_ context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeSessionStateChanged:
		var evt events.SessionStateChanged
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applySession(evt)
	case events.TypeBreakStateChanged:
		var evt events.BreakStateChanged
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applyBreak(evt)
	case events.TypeSignedOut:
		var evt events.SignedOut
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applySignOut(evt)
	default:
		l.logger.Debug("skipping unknown event type", zap.String("event_type", msg.EventType))
	}
	return nil
}

// Workers returns every known worker sorted by username.
func (l *Ledger) Workers() []WorkerStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]WorkerStatus, 0, len(l.workers))
	for _, w := range l.workers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Worker returns the status of one worker.
func (l *Ledger) Worker(username string) (WorkerStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.workers[username]
	if !ok {
		return WorkerStatus{}, false
	}
	return *w, true
}

func (l *Ledger) applySession(evt events.SessionStateChanged) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.acceptLocked(evt.Username, evt.EventID, evt.OccurredAt)
	if !ok {
		return
	}
	w.SignedIn = true
	w.State = evt.To
	w.Confirmed = evt.Outcome != events.OutcomeOptimistic
	w.TaskID = evt.TaskID
	w.ClockIn = evt.ClockIn
	if evt.To != string(session.StateClockedIn) && evt.To != string(session.StateClockingIn) {
		w.OnBreak = false
	}
	if evt.Outcome == events.OutcomeRolledBack {
		w.Rollbacks++
		rollbackCounter.WithLabelValues(evt.Reason).Inc()
		l.logger.Info("clock action rolled back",
			zap.String("username", evt.Username),
			zap.String("reason", evt.Reason),
			zap.String("state", evt.To),
		)
	}
	l.updateGaugeLocked()
}

func (l *Ledger) applyBreak(evt events.BreakStateChanged) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.acceptLocked(evt.Username, evt.EventID, evt.OccurredAt)
	if !ok {
		return
	}
	w.OnBreak = evt.State == session.BreakStarted
}

func (l *Ledger) applySignOut(evt events.SignedOut) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.acceptLocked(evt.Username, evt.EventID, evt.OccurredAt)
	if !ok {
		return
	}
	w.SignedIn = false
	w.State = string(session.StateUnknown)
	w.Confirmed = false
	w.OnBreak = false
	if evt.ImplicitClockOut {
		w.TaskID = ""
		w.ClockIn = nil
	}
	signOutCounter.WithLabelValues(evt.Reason, strconv.FormatBool(evt.ImplicitClockOut)).Inc()
	l.updateGaugeLocked()
}

// acceptLocked returns the worker record if the event is newer than the last applied one.
func (l *Ledger) acceptLocked(username, eventID string, at time.Time) (*WorkerStatus, bool) {
	w, ok := l.workers[username]
	if !ok {
		w = &WorkerStatus{Username: username, State: string(session.StateUnknown)}
		l.workers[username] = w
	}
	if eventID != "" && l.seen[username] == eventID {
		return nil, false
	}
	if at.Before(w.UpdatedAt) {
		l.logger.Debug("skipping out-of-order event", zap.String("username", username), zap.String("event_id", eventID))
		return nil, false
	}
	l.seen[username] = eventID
	w.UpdatedAt = at
	return w, true
}

func (l *Ledger) updateGaugeLocked() {
	var clockedIn int
	for _, w := range l.workers {
		if w.State == string(session.StateClockedIn) && w.Confirmed {
			clockedIn++
		}
	}
	clockedInGauge.Set(float64(clockedIn))
}
