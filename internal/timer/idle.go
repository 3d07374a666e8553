package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long a signed-in worker may be inactive before forced logout.
const DefaultIdleTimeout = 5 * time.Minute

// IdleOption configures an IdleTimer.
type IdleOption func(*IdleTimer)

// WithIdleTimeout overrides the inactivity window.
func WithIdleTimeout(d time.Duration) IdleOption {
	return func(t *IdleTimer) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithIdleClock overrides the clock.
func WithIdleClock(clock Clock) IdleOption {
	return func(t *IdleTimer) {
		t.clock = clock
	}
}

// OnIdleExpired registers the callback fired once per arming when the window elapses.
func OnIdleExpired(fn func(context.Context)) IdleOption {
	return func(t *IdleTimer) {
		t.onExpired = fn
	}
}

// WithIdleLogger overrides the logger.
func WithIdleLogger(logger *zap.Logger) IdleOption {
	return func(t *IdleTimer) {
		t.logger = logger
	}
}

// IdleTimer is a resettable deadline checked on each tick.
type IdleTimer struct {
	mu        sync.Mutex
	clock     Clock
	timeout   time.Duration
	deadline  time.Time
	armed     bool
	onExpired func(context.Context)
	logger    *zap.Logger
}

// NewIdleTimer constructs a disarmed IdleTimer.
func NewIdleTimer(opts ...IdleOption) *IdleTimer {
	t := &IdleTimer{
		clock:   SystemClock{},
		timeout: DefaultIdleTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm starts the countdown with the full window.
func (t *IdleTimer) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.deadline = t.clock.Now().Add(t.timeout)
}

// Reset restores the full window after a user interaction. It is a no-op while disarmed.
func (t *IdleTimer) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return false
	}
	t.deadline = t.clock.Now().Add(t.timeout)
	return true
}

// Disarm stops the countdown without firing.
func (t *IdleTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.deadline = time.Time{}
}

// Armed reports whether the countdown is running.
func (t *IdleTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Remaining returns the time left before expiry, or zero while disarmed.
func (t *IdleTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return 0
	}
	left := t.deadline.Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Tick fires the expiry callback if the deadline has passed and reports whether it did.
// The timer disarms itself before the callback runs, so expiry fires once per arming.
func (t *IdleTimer) Tick(ctx context.Context) bool {
	t.mu.Lock()
	if !t.armed || t.clock.Now().Before(t.deadline) {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	callback := t.onExpired
	t.mu.Unlock()

	t.logger.Info("idle timeout reached", zap.Duration("timeout", t.timeout))
	if callback != nil {
		callback(ctx)
	}
	return true
}
