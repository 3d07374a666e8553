// Package timer holds the countdowns owned by a clock session: the break timer and the
// idle-session timer. Neither starts goroutines; the owner drives them with Tick.
package timer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
)

// DefaultBreakDuration is the length of one break.
const DefaultBreakDuration = 5 * time.Minute

// BreakState is a point-in-time view of the break countdown.
type BreakState struct {
	Active    bool
	Remaining int // seconds
}

// BreakOption configures a BreakTimer.
type BreakOption func(*BreakTimer)

// WithBreakDuration overrides the break length. Sub-second durations are rounded up to one tick.
func WithBreakDuration(d time.Duration) BreakOption {
	return func(b *BreakTimer) {
		seconds := int((d + time.Second - 1) / time.Second)
		if seconds > 0 {
			b.total = seconds
		}
	}
}

// WithSessionGuard installs a check consulted before starting and on every tick.
// When it reports false the break is forced back to idle.
func WithSessionGuard(active func() bool) BreakOption {
	return func(b *BreakTimer) {
		b.guard = active
	}
}

// OnBreakExpired registers the callback fired when a break runs out.
func OnBreakExpired(fn func()) BreakOption {
	return func(b *BreakTimer) {
		b.onExpired = fn
	}
}

// WithBreakLogger overrides the logger.
func WithBreakLogger(logger *zap.Logger) BreakOption {
	return func(b *BreakTimer) {
		b.logger = logger
	}
}

// BreakTimer is a single countdown with Idle and Running states.
// It never calls out while holding its lock, so guards and callbacks may take other locks.
type BreakTimer struct {
	mu        sync.Mutex
	total     int
	remaining int
	running   bool
	guard     func() bool
	onExpired func()
	logger    *zap.Logger
}

// NewBreakTimer constructs an idle BreakTimer.
func NewBreakTimer(opts ...BreakOption) *BreakTimer {
	b := &BreakTimer{
		total:  int(DefaultBreakDuration / time.Second),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.remaining = b.total
	return b
}

// Start begins a break. It is rejected while a break is already running or without a session.
func (b *BreakTimer) Start() error {
	if b.guard != nil && !b.guard() {
		return &domain.TransitionError{Action: "start a break", From: "clocked out"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return &domain.TransitionError{Action: "start a break", From: "on break"}
	}
	b.running = true
	b.remaining = b.total
	b.logger.Debug("break started", zap.Int("seconds", b.total))
	return nil
}

// Tick decrements a running break by one second and reports whether it expired.
func (b *BreakTimer) Tick() bool {
	if b.guard != nil && !b.guard() {
		b.SessionEnded()
		return false
	}

	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return false
	}
	b.remaining--
	if b.remaining > 0 {
		b.mu.Unlock()
		return false
	}
	b.running = false
	b.remaining = b.total
	callback := b.onExpired
	b.mu.Unlock()

	b.logger.Info("break expired")
	if callback != nil {
		callback()
	}
	return true
}

// Cancel ends a running break early. Unused break time is not carried over.
func (b *BreakTimer) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return &domain.TransitionError{Action: "cancel a break", From: "not on break"}
	}
	b.running = false
	b.remaining = b.total
	b.logger.Debug("break cancelled")
	return nil
}

// SessionEnded forces the timer idle regardless of its state.
func (b *BreakTimer) SessionEnded() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		b.logger.Debug("break cleared by session end")
	}
	b.running = false
	b.remaining = b.total
}

// State returns the current countdown.
func (b *BreakTimer) State() BreakState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakState{Active: b.running, Remaining: b.remaining}
}
