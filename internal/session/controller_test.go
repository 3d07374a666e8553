package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
)

var errRemote = &domain.RequestError{Op: "test", Status: 503, Err: errors.New("unavailable")}

func TestOperationsRequireAuthentication(t *testing.T) {
	h := newHarness(t, newFakeAPI())
	ctx := context.Background()

	require.ErrorIs(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""), domain.ErrNotAuthenticated)
	require.ErrorIs(t, h.ctrl.ClockOut(ctx), domain.ErrNotAuthenticated)
	require.ErrorIs(t, h.ctrl.Reconcile(ctx), domain.ErrNotAuthenticated)
	require.ErrorIs(t, h.ctrl.StartBreak(), domain.ErrNotAuthenticated)
	require.Equal(t, StateUnknown, h.ctrl.Snapshot().State)
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	h := newHarness(t, newFakeAPI())
	err := h.ctrl.Authenticate(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	require.False(t, h.ctrl.Snapshot().Authenticated)
}

func TestReconcileAdoptsRemoteActiveSession(t *testing.T) {
	api := newFakeAPI()
	clockIn := testStart.Add(-time.Hour)
	api.active = domain.ActiveClock{IsActive: true, TaskID: "t1", ClockIn: clockIn, Shift: domain.ShiftMorning, AssignedShift: domain.ShiftMorning, Note: "restart"}
	h := newHarness(t, api)

	h.signIn(t)

	snap := h.ctrl.Snapshot()
	require.True(t, snap.Authenticated)
	require.Equal(t, "ana", snap.Username)
	require.Equal(t, StateClockedIn, snap.State)
	require.NotNil(t, snap.Session)
	require.Equal(t, "t1", snap.Session.TaskID)
	require.True(t, snap.Session.ClockIn.Equal(clockIn))
	require.Equal(t, domain.PhaseConfirmed, snap.Session.Phase)
	require.Equal(t, "restart", snap.Session.Note)
	require.InDelta(t, 1.0, snap.Summary.Hours, 1e-9)
	require.Equal(t, []events.Outcome{events.OutcomeReconciled}, h.publisher.outcomes())
}

func TestReconcileRemoteWinsOverLocal(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	require.Equal(t, StateClockedIn, h.ctrl.Snapshot().State)

	api.set(func(f *fakeAPI) { f.active = domain.ActiveClock{} })
	require.NoError(t, h.ctrl.Reconcile(ctx))
	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedOut, snap.State)
	require.Nil(t, snap.Session)

	other := testStart.Add(-30 * time.Minute)
	api.set(func(f *fakeAPI) {
		f.active = domain.ActiveClock{IsActive: true, TaskID: "t2", ClockIn: other, AssignedShift: domain.ShiftNight}
	})
	require.NoError(t, h.ctrl.Reconcile(ctx))
	snap = h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, "t2", snap.Session.TaskID)
	require.Equal(t, domain.ShiftNight, snap.Session.Shift)
}

func TestReconcileInactive(t *testing.T) {
	h := newHarness(t, newFakeAPI())
	h.signIn(t)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedOut, snap.State)
	require.Nil(t, snap.Session)
	require.Nil(t, snap.Summary.FirstClockIn)
}

func TestReconcileFailureKeepsState(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)

	api.set(func(f *fakeAPI) { f.activeErr = errRemote })
	err := h.ctrl.Reconcile(context.Background())
	require.ErrorIs(t, err, domain.ErrRequest)
	require.Equal(t, StateClockedOut, h.ctrl.Snapshot().State)
}

func TestClockInValidationMakesNoRemoteCall(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	err := h.ctrl.ClockIn(ctx, "", domain.ShiftMorning, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "task", verr.Field)

	err = h.ctrl.ClockIn(ctx, "t1", "", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	err = h.ctrl.ClockIn(ctx, "t1", domain.Shift("evening"), "")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.Zero(t, api.count("clock_in"))
	require.Equal(t, StateClockedOut, h.ctrl.Snapshot().State)
	require.True(t, hasSeverity(drain(h.ctrl.Notifications()), domain.SeverityWarning))
}

func TestClockInConfirmedUsesServerFields(t *testing.T) {
	api := newFakeAPI()
	serverTime := testStart.Add(-2 * time.Second)
	api.clockIn = domain.ClockInResult{ClockIn: serverTime, TaskID: "t1", AssignedShift: domain.ShiftAfternoon}
	api.history = []domain.ClockRecord{{ID: "r1", TaskID: "t1", ClockIn: serverTime, AssignedShift: domain.ShiftAfternoon}}
	api.tasks = []domain.Task{{ID: "t1", Title: "Packing", AssignedShift: domain.ShiftAfternoon}}
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.RefreshTasks(ctx))

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, "  first  "))

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, domain.PhaseConfirmed, snap.Session.Phase)
	require.True(t, snap.Session.ClockIn.Equal(serverTime))
	require.Equal(t, domain.ShiftAfternoon, snap.Session.AssignedShift)
	require.Equal(t, domain.ShiftMorning, snap.Session.Shift)
	require.Equal(t, "first", snap.Session.Note)
	require.NotEmpty(t, snap.Session.LocalID)
	require.Len(t, snap.History, 1)
	require.Equal(t, 1, api.count("history"))

	// the open history record is the active session and is counted once
	h.clock.Advance(time.Hour)
	require.InDelta(t, 1.0+2.0/3600, h.ctrl.Snapshot().Summary.Hours, 1e-9)

	require.Equal(t, []events.Outcome{events.OutcomeReconciled, events.OutcomeOptimistic, events.OutcomeConfirmed}, h.publisher.outcomes())
	require.True(t, hasSeverity(drain(h.ctrl.Notifications()), domain.SeveritySuccess))
}

func TestClockInRejectedWhileClockedIn(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	err := h.ctrl.ClockIn(ctx, "t2", domain.ShiftMorning, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, 1, api.count("clock_in"))
	require.Equal(t, "t1", h.ctrl.Snapshot().Session.TaskID)
}

func TestClockInFailureRollsBackWhenServerHasNoSession(t *testing.T) {
	api := newFakeAPI()
	api.clockInErr = errRemote
	h := newHarness(t, api)
	h.signIn(t)

	err := h.ctrl.ClockIn(context.Background(), "t1", domain.ShiftMorning, "")
	require.ErrorIs(t, err, domain.ErrRequest)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedOut, snap.State)
	require.Nil(t, snap.Session)
	require.False(t, snap.Processing)
	require.Equal(t, 2, api.count("active"))
	require.Equal(t, []events.Outcome{events.OutcomeReconciled, events.OutcomeOptimistic, events.OutcomeRolledBack}, h.publisher.outcomes())
	require.True(t, hasSeverity(drain(h.ctrl.Notifications()), domain.SeverityError))
}

func TestClockInFailureAdoptsServerSession(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)

	serverIn := testStart.Add(-10 * time.Minute)
	api.set(func(f *fakeAPI) {
		f.clockInErr = errRemote
		f.active = domain.ActiveClock{IsActive: true, TaskID: "t9", ClockIn: serverIn, AssignedShift: domain.ShiftNight}
	})

	err := h.ctrl.ClockIn(context.Background(), "t1", domain.ShiftMorning, "")
	require.Error(t, err)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, "t9", snap.Session.TaskID)
	require.True(t, snap.Session.ClockIn.Equal(serverIn))
	require.Equal(t, domain.PhaseConfirmed, snap.Session.Phase)
}

func TestConcurrentClockInFailsBusy(t *testing.T) {
	api := newFakeAPI()
	gate := make(chan struct{})
	api.clockInGate = gate
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, "") }()
	require.Equal(t, "clock_in", <-api.entered)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockingIn, snap.State)
	require.True(t, snap.Processing)
	require.Equal(t, domain.PhaseOptimistic, snap.Session.Phase)
	firstID := snap.Session.LocalID

	err := h.ctrl.ClockIn(ctx, "t2", domain.ShiftNight, "")
	require.ErrorIs(t, err, domain.ErrBusy)
	require.ErrorIs(t, h.ctrl.ClockOut(ctx), domain.ErrBusy)
	require.Equal(t, firstID, h.ctrl.Snapshot().Session.LocalID)

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, 1, api.count("clock_in"))
	require.Equal(t, StateClockedIn, h.ctrl.Snapshot().State)
	require.Equal(t, firstID, h.ctrl.Snapshot().Session.LocalID)
}

func TestClockOutClearsOptimistically(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	require.NoError(t, h.ctrl.StartBreak())

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.clockOutGate = gate })
	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockOut(ctx) }()
	require.Equal(t, "clock_out", <-api.entered)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockingOut, snap.State)
	require.Nil(t, snap.Session)
	require.False(t, snap.Break.Active)

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, StateClockedOut, h.ctrl.Snapshot().State)
	require.Equal(t, 2, api.count("history"))
}

func TestClockOutWithoutSession(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)

	err := h.ctrl.ClockOut(context.Background())
	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "clocked out", terr.From)
	require.Zero(t, api.count("clock_out"))
}

func TestClockOutFailureRestoresServerSession(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	localID := h.ctrl.Snapshot().Session.LocalID
	api.set(func(f *fakeAPI) { f.clockOutErr = errRemote })

	err := h.ctrl.ClockOut(ctx)
	require.ErrorIs(t, err, domain.ErrRequest)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, "t1", snap.Session.TaskID)
	require.Equal(t, localID, snap.Session.LocalID)
	require.True(t, hasSeverity(drain(h.ctrl.Notifications()), domain.SeverityError))
}

func TestClockOutFailureWithUnreachableServerRestoresLocal(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	api.set(func(f *fakeAPI) {
		f.clockOutErr = errRemote
		f.activeErr = errRemote
	})

	require.Error(t, h.ctrl.ClockOut(ctx))
	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, "t1", snap.Session.TaskID)
}

func TestClockOutFailureButServerClosed(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))
	api.set(func(f *fakeAPI) {
		f.clockOutErr = errRemote
		f.active = domain.ActiveClock{}
	})

	require.Error(t, h.ctrl.ClockOut(ctx))
	require.Equal(t, StateClockedOut, h.ctrl.Snapshot().State)
}

func TestStaleReconciliationIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.activeGate = gate })
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Reconcile(ctx) }()
	require.Equal(t, "active", <-api.entered)

	api.set(func(f *fakeAPI) { f.activeGate = nil })
	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))

	// the pending query answers with a view older than the clock-in
	api.set(func(f *fakeAPI) { f.active = domain.ActiveClock{} })
	close(gate)
	require.NoError(t, <-done)

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.Equal(t, "t1", snap.Session.TaskID)
}

func TestCloseDropsInFlightResults(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)

	gate := make(chan struct{})
	defer close(gate)
	api.set(func(f *fakeAPI) { f.clockInGate = gate })
	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockIn(context.Background(), "t1", domain.ShiftMorning, "") }()
	<-api.entered

	h.ctrl.Close()
	require.Error(t, <-done)

	require.ErrorIs(t, h.ctrl.Reconcile(context.Background()), ErrClosed)
	require.ErrorIs(t, h.ctrl.ClockOut(context.Background()), ErrClosed)
	require.NoError(t, h.ctrl.Run(context.Background()))
}

func TestRunStopsWithContext(t *testing.T) {
	h := newHarness(t, newFakeAPI(), WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestSnapshotSummaryWithHistoryAndActiveSession(t *testing.T) {
	api := newFakeAPI()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	out := day.Add(17 * time.Hour)
	api.history = []domain.ClockRecord{{ID: "r1", TaskID: "t1", ClockIn: day.Add(9 * time.Hour), ClockOut: &out}}
	api.active = domain.ActiveClock{IsActive: true, TaskID: "t2", ClockIn: day.Add(18 * time.Hour)}
	h := newHarness(t, api)
	h.clock.Set(day.Add(19 * time.Hour))
	h.signIn(t)
	require.NoError(t, h.ctrl.RefreshHistory(context.Background()))

	summary := h.ctrl.Snapshot().Summary
	require.InDelta(t, 9.0, summary.Hours, 1e-9)
	require.NotNil(t, summary.FirstClockIn)
	require.True(t, summary.FirstClockIn.Equal(day.Add(9*time.Hour)))
	require.Nil(t, summary.LastClockOut)
}

func TestRefreshPointsAndTasks(t *testing.T) {
	api := newFakeAPI()
	api.points = domain.Points{Total: 10, Available: 4, Redeemed: 6}
	api.tasks = []domain.Task{{ID: "t1", Title: "Picking"}}
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.RefreshPoints(ctx))
	require.NoError(t, h.ctrl.RefreshTasks(ctx))
	snap := h.ctrl.Snapshot()
	require.Equal(t, 4, snap.Points.Available)
	require.Len(t, snap.Tasks, 1)
}

func TestAuthenticateSetsClientToken(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, api)
	h.signIn(t)
	require.NotEmpty(t, api.token)

	require.NoError(t, h.ctrl.Logout(context.Background()))
	require.Empty(t, api.token)
}

func TestClockInKeepsLocalTimeWithoutServerTimestamp(t *testing.T) {
	api := newFakeAPI()
	api.noClockIn = true
	h := newHarness(t, api)
	h.signIn(t)
	ctx := context.Background()

	h.clock.Advance(time.Hour)
	started := h.clock.Now()
	require.NoError(t, h.ctrl.ClockIn(ctx, "t1", domain.ShiftMorning, ""))

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateClockedIn, snap.State)
	require.True(t, snap.Session.ClockIn.Equal(started))

	h.clock.Advance(30 * time.Minute)
	require.InDelta(t, 0.5, h.ctrl.Snapshot().Summary.Hours, 0.001)
}
