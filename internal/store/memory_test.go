package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/timer"
)

func TestClockInOutLifecycle(t *testing.T) {
	clock := timer.NewManualClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	s := NewInMemoryStore(WithClock(clock))
	ctx := context.Background()

	active, err := s.ActiveClock(ctx, "ana")
	require.NoError(t, err)
	require.False(t, active.IsActive)

	record, err := s.ClockIn(ctx, "ana", "task-picking", domain.ClockInOptions{Shift: domain.ShiftMorning, Note: " dock 3 "})
	require.NoError(t, err)
	require.Equal(t, "Order picking", record.TaskTitle)
	require.Equal(t, "dock 3", record.Note)
	require.Equal(t, domain.ShiftMorning, record.AssignedShift)
	require.True(t, record.Open())

	active, err = s.ActiveClock(ctx, "ana")
	require.NoError(t, err)
	require.True(t, active.IsActive)
	require.Equal(t, "task-picking", active.TaskID)
	require.True(t, active.ClockIn.Equal(clock.Now()))

	clock.Advance(8 * time.Hour)
	closed, err := s.ClockOut(ctx, "ana", "task-picking")
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	require.Equal(t, 8*time.Hour, closed.ClockOut.Sub(closed.ClockIn))

	history := s.History(ctx, "ana")
	require.Len(t, history, 1)
	require.False(t, history[0].Open())
}

func TestClockInRejectsSecondSession(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.ClockIn(ctx, "ana", "task-picking", domain.ClockInOptions{Shift: domain.ShiftMorning})
	require.NoError(t, err)

	_, err = s.ClockIn(ctx, "ana", "task-packing", domain.ClockInOptions{Shift: domain.ShiftAfternoon})
	require.ErrorIs(t, err, domain.ErrSessionActive)

	_, err = s.ClockIn(ctx, "ben", "task-packing", domain.ClockInOptions{Shift: domain.ShiftAfternoon})
	require.NoError(t, err)
}

func TestClockInUnknownTask(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.ClockIn(context.Background(), "ana", "missing", domain.ClockInOptions{Shift: domain.ShiftNight})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestClockOutWithoutSession(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.ClockOut(ctx, "ana", "task-picking")
	require.ErrorIs(t, err, domain.ErrNoActiveSession)

	_, err = s.ClockIn(ctx, "ana", "task-picking", domain.ClockInOptions{Shift: domain.ShiftMorning})
	require.NoError(t, err)
	_, err = s.ClockOut(ctx, "ana", "task-packing")
	require.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestTasksAndPoints(t *testing.T) {
	s := NewInMemoryStore(
		WithTasks(domain.Task{ID: "t1", Title: "Receiving", AssignedShift: domain.ShiftNight}),
		WithPoints(domain.Points{Total: 10, Available: 7, Redeemed: 3}),
	)
	tasks := s.Tasks(context.Background(), "ana")
	require.Equal(t, []domain.Task{{ID: "t1", Title: "Receiving", AssignedShift: domain.ShiftNight}}, tasks)
	require.Equal(t, 7, s.Points(context.Background(), "ana").Available)
}

func TestRevoke(t *testing.T) {
	s := NewInMemoryStore()
	require.False(t, s.Revoked("tok"))
	s.Revoke("tok")
	require.True(t, s.Revoked("tok"))
}
