package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/laborsync/internal/auth"
	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/timer"
)

// fakeAPI is a scripted domain.AttendanceAPI. A non-nil gate blocks the matching call until it
// is closed; entered receives one value per blocked call.
type fakeAPI struct {
	mu sync.Mutex

	active      domain.ActiveClock
	activeErr   error
	clockIn     domain.ClockInResult
	clockInErr  error
	// noClockIn confirms clock-ins without a server timestamp.
	noClockIn bool
	clockOutErr error
	logoutErr   error
	history     []domain.ClockRecord
	tasks       []domain.Task
	points      domain.Points

	activeGate   chan struct{}
	clockInGate  chan struct{}
	clockOutGate chan struct{}
	entered      chan string

	calls map[string]int
	token string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:   make(map[string]int),
		entered: make(chan string, 16),
	}
}

func (f *fakeAPI) record(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	switch op {
	case "active":
		return f.activeGate
	case "clock_in":
		return f.clockInGate
	case "clock_out":
		return f.clockOutGate
	}
	return nil
}

func (f *fakeAPI) wait(ctx context.Context, op string, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	f.entered <- op
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return &domain.RequestError{Op: op, Err: ctx.Err()}
	}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) ActiveClock(ctx context.Context) (domain.ActiveClock, error) {
	if err := f.wait(ctx, "active", f.record("active")); err != nil {
		return domain.ActiveClock{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.activeErr
}

func (f *fakeAPI) ClockIn(ctx context.Context, taskID string, opts domain.ClockInOptions) (domain.ClockInResult, error) {
	if err := f.wait(ctx, "clock_in", f.record("clock_in")); err != nil {
		return domain.ClockInResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clockInErr != nil {
		return domain.ClockInResult{}, f.clockInErr
	}
	result := f.clockIn
	if result.TaskID == "" {
		result.TaskID = taskID
	}
	if result.ClockIn.IsZero() {
		result.ClockIn = testStart
	}
	f.active = domain.ActiveClock{IsActive: true, TaskID: result.TaskID, ClockIn: result.ClockIn, Shift: opts.Shift, AssignedShift: result.AssignedShift}
	if f.noClockIn {
		result.ClockIn = time.Time{}
	}
	return result, nil
}

func (f *fakeAPI) ClockOut(ctx context.Context, taskID string) error {
	if err := f.wait(ctx, "clock_out", f.record("clock_out")); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clockOutErr != nil {
		return f.clockOutErr
	}
	f.active = domain.ActiveClock{}
	return nil
}

func (f *fakeAPI) ClockHistory(context.Context) ([]domain.ClockRecord, error) {
	f.record("history")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ClockRecord(nil), f.history...), nil
}

func (f *fakeAPI) UserTasks(context.Context) ([]domain.Task, error) {
	f.record("tasks")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) UserPoints(context.Context) (domain.Points, error) {
	f.record("points")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.points, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.record("logout")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) outcomes() []events.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Outcome
	for _, evt := range p.events {
		if changed, ok := evt.(events.SessionStateChanged); ok {
			out = append(out, changed.Outcome)
		}
	}
	return out
}

func (p *recordingPublisher) breakStates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, evt := range p.events {
		if changed, ok := evt.(events.BreakStateChanged); ok {
			out = append(out, changed.State)
		}
	}
	return out
}

func (p *recordingPublisher) signedOut() []events.SignedOut {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.SignedOut
	for _, evt := range p.events {
		if signed, ok := evt.(events.SignedOut); ok {
			out = append(out, signed)
		}
	}
	return out
}

var testStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)

type harness struct {
	api       *fakeAPI
	clock     *timer.ManualClock
	publisher *recordingPublisher
	ctrl      *Controller
}

func newHarness(t *testing.T, api *fakeAPI, opts ...Option) harness {
	t.Helper()
	clock := timer.NewManualClock(testStart)
	publisher := &recordingPublisher{}
	base := []Option{
		WithClock(clock),
		WithPublisher(publisher),
		WithLogger(zaptest.NewLogger(t)),
		WithRemoteTimeout(time.Second),
	}
	ctrl := NewController(api, append(base, opts...)...)
	t.Cleanup(ctrl.Close)
	return harness{api: api, clock: clock, publisher: publisher, ctrl: ctrl}
}

func (h harness) signIn(t *testing.T) {
	t.Helper()
	token, err := auth.Issue(auth.Config{Secret: "s", Issuer: "test"}, "ana", time.Hour, h.clock.Now())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Authenticate(context.Background(), token))
}

func drain(ch <-chan domain.Notification) []domain.Notification {
	var out []domain.Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func hasSeverity(notes []domain.Notification, severity domain.Severity) bool {
	for _, n := range notes {
		if n.Severity == severity {
			return true
		}
	}
	return false
}
