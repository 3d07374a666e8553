// Package session owns the clock session of the signed-in worker: whether they are clocked
// in, on which task and since when. It applies clock actions optimistically, reconciles them
// against the remote attendance API, and drives the break and idle timers from one tick loop.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/observability"
	"example.com/laborsync/internal/timer"
	"example.com/laborsync/internal/worktime"
)

// DefaultRemoteTimeout bounds each remote call made by the controller.
const DefaultRemoteTimeout = 10 * time.Second

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session controller closed")

// State is the clock session state.
type State string

const (
	StateUnknown     State = "unknown"
	StateClockedOut  State = "clocked_out"
	StateClockingIn  State = "clocking_in"
	StateClockedIn   State = "clocked_in"
	StateClockingOut State = "clocking_out"
)

func (s State) describe() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Snapshot is a consistent copy of the controller's state at one instant.
type Snapshot struct {
	State         State
	Authenticated bool
	Username      string
	Processing    bool
	Session       *domain.ActiveSession
	Break         timer.BreakState
	IdleRemaining time.Duration
	Summary       domain.DailyWorkSummary
	History       []domain.ClockRecord
	Tasks         []domain.Task
	Points        *domain.Points
	Now           time.Time
}

// tokenSink is implemented by remote clients that carry a bearer token.
type tokenSink interface {
	SetToken(token string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock overrides the time source shared by the controller and its timers.
func WithClock(clock timer.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithPublisher sets the sink for attendance events.
func WithPublisher(publisher events.Publisher) Option {
	return func(c *Controller) {
		c.publisher = publisher
	}
}

// WithRemoteTimeout bounds each remote call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.remoteTimeout = d
		}
	}
}

// WithBreakDuration overrides the break length.
func WithBreakDuration(d time.Duration) Option {
	return func(c *Controller) {
		c.breakDuration = d
	}
}

// WithIdleTimeout overrides the inactivity window.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.idleTimeout = d
	}
}

// WithTickInterval sets the wall time Run waits between timer ticks. Each tick counts as one
// second of break time.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithNotificationTTL overrides how long notifications stay visible.
func WithNotificationTTL(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.notificationTTL = d
		}
	}
}

// Controller is the clock session state machine.
//
// Its state is guarded by mu, which is never held across a remote call. The processing flag
// admits one clock action at a time; epoch increases with every applied change so that a
// reconciliation result computed against an older state is discarded.
type Controller struct {
	api             domain.AttendanceAPI
	clock           timer.Clock
	logger          *zap.Logger
	publisher       events.Publisher
	remoteTimeout   time.Duration
	breakDuration   time.Duration
	idleTimeout     time.Duration
	tickInterval    time.Duration
	notificationTTL time.Duration

	breaks        *timer.BreakTimer
	idle          *timer.IdleTimer
	notifications chan domain.Notification

	lifetime context.Context
	cancel   context.CancelFunc

	mu            sync.Mutex
	state         State
	session       *domain.ActiveSession
	processing    bool
	epoch         uint64
	generation    uint64
	authenticated bool
	username      string
	history       []domain.ClockRecord
	tasks         []domain.Task
	points        *domain.Points
	closed        bool
}

// NewController constructs an unauthenticated Controller in the Unknown state.
func NewController(api domain.AttendanceAPI, opts ...Option) *Controller {
	c := &Controller{
		api:             api,
		clock:           timer.SystemClock{},
		logger:          zap.NewNop(),
		publisher:       events.NoopPublisher{},
		remoteTimeout:   DefaultRemoteTimeout,
		breakDuration:   timer.DefaultBreakDuration,
		idleTimeout:     timer.DefaultIdleTimeout,
		tickInterval:    time.Second,
		notificationTTL: domain.DefaultAutoDismiss,
		notifications:   make(chan domain.Notification, 32),
		state:           StateUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lifetime, c.cancel = context.WithCancel(context.Background())

	c.breaks = timer.NewBreakTimer(
		timer.WithBreakDuration(c.breakDuration),
		timer.WithSessionGuard(c.hasSession),
		timer.OnBreakExpired(c.onBreakExpired),
		timer.WithBreakLogger(c.logger.Named("break")),
	)
	c.idle = timer.NewIdleTimer(
		timer.WithIdleTimeout(c.idleTimeout),
		timer.WithIdleClock(c.clock),
		timer.OnIdleExpired(c.onIdleExpired),
		timer.WithIdleLogger(c.logger.Named("idle")),
	)
	return c
}

// Notifications delivers transient user-visible messages. The channel is never closed;
// messages are dropped when nobody drains it.
func (c *Controller) Notifications() <-chan domain.Notification {
	return c.notifications
}

// Snapshot returns the current state with the worked-today summary computed at now.
func (c *Controller) Snapshot() Snapshot {
	now := c.clock.Now()
	brk := c.breaks.State()
	idleLeft := c.idle.Remaining()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:         c.state,
		Authenticated: c.authenticated,
		Username:      c.username,
		Processing:    c.processing,
		Break:         brk,
		IdleRemaining: idleLeft,
		History:       append([]domain.ClockRecord(nil), c.history...),
		Tasks:         append([]domain.Task(nil), c.tasks...),
		Now:           now,
	}
	if c.session != nil {
		session := *c.session
		snap.Session = &session
	}
	if c.points != nil {
		points := *c.points
		snap.Points = &points
	}
	snap.Summary = worktime.Summarize(c.history, c.session, now, worktime.DayStart(now))
	return snap
}

// Run drives both timers until ctx is cancelled or the controller is closed.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.lifetime.Done():
			return nil
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick advances the break countdown by one second and checks the idle deadline.
func (c *Controller) Tick(ctx context.Context) {
	if c.lifetime.Err() != nil {
		return
	}
	c.breaks.Tick()
	c.idle.Tick(ctx)

	now := c.clock.Now()
	c.mu.Lock()
	summary := worktime.Summarize(c.history, c.session, now, worktime.DayStart(now))
	c.mu.Unlock()
	observability.SetHoursToday(summary.Hours)
}

// Close disarms both timers, cancels outstanding remote calls and makes every later
// operation fail with ErrClosed. Results of calls still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.mu.Unlock()

	c.cancel()
	c.idle.Disarm()
	c.breaks.SessionEnded()
}

// Touch records a user interaction.
func (c *Controller) Touch() {
	c.idle.Reset()
}

func (c *Controller) hasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// remoteContext bounds a remote call by the configured timeout and by the controller's lifetime.
func (c *Controller) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	stop := context.AfterFunc(c.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// guardLocked checks the preconditions shared by every user action.
func (c *Controller) guardLocked() error {
	if c.closed {
		return ErrClosed
	}
	if !c.authenticated {
		return domain.ErrNotAuthenticated
	}
	return nil
}

// transitionLocked moves to state to and publishes the change.
func (c *Controller) transitionLocked(to State, outcome events.Outcome, reason string) {
	from := c.state
	c.state = to
	c.epoch++

	evt := events.SessionStateChanged{
		EventID:    uuid.NewString(),
		Username:   c.username,
		From:       string(from),
		To:         string(to),
		Outcome:    outcome,
		OccurredAt: c.clock.Now().UTC(),
		Reason:     reason,
	}
	if c.session != nil {
		clockIn := c.session.ClockIn
		evt.SessionID = c.session.LocalID
		evt.TaskID = c.session.TaskID
		evt.ClockIn = &clockIn
	}
	c.publish(evt)
	observability.RecordTransition(string(to), string(outcome))
	c.logger.Info("session transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
	)
}

func (c *Controller) publish(evt events.Event) {
	if err := c.publisher.Publish(c.lifetime, evt); err != nil {
		c.logger.Debug("event not published", zap.String("type", evt.EventType()), zap.Error(err))
	}
}

func (c *Controller) notify(severity domain.Severity, message string) {
	n := domain.Notification{
		Severity:    severity,
		Message:     message,
		AutoDismiss: c.notificationTTL,
		CreatedAt:   c.clock.Now(),
	}
	select {
	case c.notifications <- n:
	default:
		c.logger.Debug("notification dropped", zap.String("message", message))
	}
}

// reject logs and counts a locally refused action and returns err unchanged.
func (c *Controller) reject(action string, err error) error {
	observability.RecordRejected(err)
	switch {
	case errors.Is(err, domain.ErrBusy):
		c.notify(domain.SeverityWarning, "Please wait, a clock action is already in progress")
	case errors.Is(err, domain.ErrValidation):
		c.notify(domain.SeverityWarning, err.Error())
	}
	c.logger.Warn("action rejected", zap.String("action", action), zap.Error(err))
	return err
}
