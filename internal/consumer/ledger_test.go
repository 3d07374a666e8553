package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/session"
)

var ledgerStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func message(t *testing.T, evt events.Event) Message {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return Message{Topic: "attendance_events", EventType: evt.EventType(), Key: evt.PartitionKey(), Payload: payload}
}

func transition(id string, at time.Duration, to session.State, outcome events.Outcome) events.SessionStateChanged {
	clockIn := ledgerStart
	return events.SessionStateChanged{
		EventID:    id,
		Username:   "ana",
		TaskID:     "task-picking",
		From:       string(session.StateClockedOut),
		To:         string(to),
		Outcome:    outcome,
		ClockIn:    &clockIn,
		OccurredAt: ledgerStart.Add(at),
		Reason:     "clock in failed",
	}
}

func TestLedgerTracksClockCycle(t *testing.T) {
	ledger := NewLedger(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, ledger.Handle(ctx, message(t, transition("e1", 0, session.StateClockingIn, events.OutcomeOptimistic))))
	w, ok := ledger.Worker("ana")
	require.True(t, ok)
	require.False(t, w.Confirmed)

	require.NoError(t, ledger.Handle(ctx, message(t, transition("e2", time.Second, session.StateClockedIn, events.OutcomeConfirmed))))
	require.NoError(t, ledger.Handle(ctx, message(t, events.BreakStateChanged{
		EventID: "e3", Username: "ana", State: session.BreakStarted, RemainingSeconds: 300, OccurredAt: ledgerStart.Add(time.Minute),
	})))

	w, _ = ledger.Worker("ana")
	require.True(t, w.SignedIn)
	require.True(t, w.Confirmed)
	require.True(t, w.OnBreak)
	require.Equal(t, string(session.StateClockedIn), w.State)
	require.Equal(t, "task-picking", w.TaskID)

	require.NoError(t, ledger.Handle(ctx, message(t, events.SignedOut{
		EventID: "e4", Username: "ana", Reason: session.ReasonIdle, ImplicitClockOut: true, OccurredAt: ledgerStart.Add(time.Hour),
	})))
	w, _ = ledger.Worker("ana")
	require.False(t, w.SignedIn)
	require.False(t, w.OnBreak)
	require.Nil(t, w.ClockIn)
	require.Equal(t, string(session.StateUnknown), w.State)
}

func TestLedgerCountsRollbacks(t *testing.T) {
	ledger := NewLedger(nil)
	ctx := context.Background()

	require.NoError(t, ledger.Handle(ctx, message(t, transition("e1", 0, session.StateClockingIn, events.OutcomeOptimistic))))
	require.NoError(t, ledger.Handle(ctx, message(t, transition("e2", time.Second, session.StateClockedOut, events.OutcomeRolledBack))))

	w, _ := ledger.Worker("ana")
	require.Equal(t, 1, w.Rollbacks)
	require.True(t, w.Confirmed)
	require.Equal(t, string(session.StateClockedOut), w.State)
}

func TestLedgerIgnoresDuplicateAndStaleEvents(t *testing.T) {
	ledger := NewLedger(nil)
	ctx := context.Background()

	confirmed := transition("e2", time.Minute, session.StateClockedIn, events.OutcomeConfirmed)
	require.NoError(t, ledger.Handle(ctx, message(t, confirmed)))
	require.NoError(t, ledger.Handle(ctx, message(t, confirmed)))
	require.NoError(t, ledger.Handle(ctx, message(t, transition("e1", 0, session.StateClockedOut, events.OutcomeRolledBack))))

	w, _ := ledger.Worker("ana")
	require.Equal(t, string(session.StateClockedIn), w.State)
	require.Zero(t, w.Rollbacks)
}

func TestLedgerSkipsUnknownTypesAndRejectsBadPayloads(t *testing.T) {
	ledger := NewLedger(nil)
	ctx := context.Background()

	require.NoError(t, ledger.Handle(ctx, Message{EventType: "attendance.unknown", Payload: json.RawMessage(`{}`)}))
	require.Empty(t, ledger.Workers())

	err := ledger.Handle(ctx, Message{EventType: events.TypeSignedOut, Payload: json.RawMessage(`{"username":1}`)})
	require.Error(t, err)
}

func TestLedgerWorkersSorted(t *testing.T) {
	ledger := NewLedger(nil)
	ctx := context.Background()
	for _, name := range []string{"zoe", "ana", "mia"} {
		require.NoError(t, ledger.Handle(ctx, message(t, events.SignedOut{EventID: name, Username: name, Reason: session.ReasonLogout, OccurredAt: ledgerStart})))
	}

	workers := ledger.Workers()
	require.Len(t, workers, 3)
	require.Equal(t, []string{"ana", "mia", "zoe"}, []string{workers[0].Username, workers[1].Username, workers[2].Username})
}
