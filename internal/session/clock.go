package session

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/observability"
)

// Reconcile replaces local session state with the remote active clock. The remote view wins.
// A result is discarded when the state changed while the query was pending.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.epoch
	c.mu.Unlock()

	active, err := c.fetchActive(ctx)
	if err != nil {
		observability.RecordReconciliation("failed")
		c.logger.Error("reconciliation failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	if c.closed || c.processing || c.epoch != epoch {
		c.mu.Unlock()
		observability.RecordReconciliation("stale")
		c.logger.Debug("discarding stale reconciliation")
		return nil
	}
	ended := c.applyRemoteLocked(active, events.OutcomeReconciled, "reconcile")
	c.mu.Unlock()

	if ended {
		c.endBreak("session ended remotely")
	}
	return nil
}

// ClockIn starts a session on taskID. The session is shown immediately and confirmed or
// rolled back once the remote store answers.
func (c *Controller) ClockIn(ctx context.Context, taskID string, shift domain.Shift, note string) error {
	c.idle.Reset()
	taskID = strings.TrimSpace(taskID)

	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return c.reject("clock in", err)
	}
	if c.processing {
		c.mu.Unlock()
		return c.reject("clock in", domain.ErrBusy)
	}
	if c.session != nil {
		from := c.state
		c.mu.Unlock()
		return c.reject("clock in", &domain.TransitionError{Action: "clock in", From: from.describe()})
	}
	if taskID == "" {
		c.mu.Unlock()
		return c.reject("clock in", &domain.ValidationError{Field: "task", Reason: "a task must be selected"})
	}
	if _, err := domain.ParseShift(string(shift)); err != nil {
		c.mu.Unlock()
		return c.reject("clock in", err)
	}

	assigned := shift
	for _, task := range c.tasks {
		if task.ID == taskID && task.AssignedShift != "" {
			assigned = task.AssignedShift
			break
		}
	}
	c.processing = true
	c.session = &domain.ActiveSession{
		LocalID:       uuid.NewString(),
		TaskID:        taskID,
		ClockIn:       c.clock.Now(),
		Shift:         shift,
		Note:          strings.TrimSpace(note),
		AssignedShift: assigned,
		Phase:         domain.PhaseOptimistic,
	}
	c.transitionLocked(StateClockingIn, events.OutcomeOptimistic, "clock in requested")
	epoch := c.epoch
	opts := domain.ClockInOptions{Shift: shift, Note: c.session.Note, AssignedShift: assigned}
	c.mu.Unlock()
	defer c.release()

	rctx, cancel := c.remoteContext(ctx)
	result, err := c.api.ClockIn(rctx, taskID, opts)
	cancel()

	if err != nil {
		c.logger.Error("clock in failed", zap.String("task_id", taskID), zap.Error(err))
		c.notify(domain.SeverityError, "Clock in failed: "+err.Error())
		c.resolveFailure(ctx, epoch, nil, "clock in failed")
		return err
	}

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Warn("clock in confirmed after session changed", zap.String("task_id", taskID))
		return nil
	}
	if !result.ClockIn.IsZero() {
		c.session.ClockIn = result.ClockIn
	}
	if result.TaskID != "" {
		c.session.TaskID = result.TaskID
	}
	if result.AssignedShift != "" {
		c.session.AssignedShift = result.AssignedShift
	}
	c.session.Phase = domain.PhaseConfirmed
	c.transitionLocked(StateClockedIn, events.OutcomeConfirmed, "clock in confirmed")
	c.mu.Unlock()

	c.notify(domain.SeveritySuccess, "Clocked in")
	c.refreshHistoryQuietly(ctx)
	return nil
}

// ClockOut ends the active session. Session and break are cleared before the remote call.
func (c *Controller) ClockOut(ctx context.Context) error {
	c.idle.Reset()

	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return c.reject("clock out", err)
	}
	if c.processing {
		c.mu.Unlock()
		return c.reject("clock out", domain.ErrBusy)
	}
	if c.session == nil {
		from := c.state
		c.mu.Unlock()
		return c.reject("clock out", &domain.TransitionError{Action: "clock out", From: from.describe()})
	}

	previous := *c.session
	c.processing = true
	c.transitionLocked(StateClockingOut, events.OutcomeOptimistic, "clock out requested")
	c.session = nil
	epoch := c.epoch
	c.mu.Unlock()
	defer c.release()

	c.endBreak("session ended")

	rctx, cancel := c.remoteContext(ctx)
	err := c.api.ClockOut(rctx, previous.TaskID)
	cancel()

	if err != nil {
		c.logger.Error("clock out failed", zap.String("task_id", previous.TaskID), zap.Error(err))
		c.notify(domain.SeverityError, "Clock out failed: "+err.Error())
		c.resolveFailure(ctx, epoch, &previous, "clock out failed")
		return err
	}

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	c.transitionLocked(StateClockedOut, events.OutcomeConfirmed, "clock out confirmed")
	c.mu.Unlock()

	c.notify(domain.SeveritySuccess, "Clocked out")
	c.refreshHistoryQuietly(ctx)
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.processing = false
	c.mu.Unlock()
}

// resolveFailure re-queries the remote store after a failed clock action. The remote view wins;
// if it cannot be read the failed request is assumed not applied and previous is restored
// (nil meaning clocked out). A break cannot outlive the session it was started in.
func (c *Controller) resolveFailure(ctx context.Context, epoch uint64, previous *domain.ActiveSession, reason string) {
	active, err := c.fetchActive(ctx)

	c.mu.Lock()
	ended, applied := c.settleFailureLocked(epoch, previous, reason, active, err)
	c.mu.Unlock()

	if applied && ended {
		c.endBreak(reason)
	}
}

// settleFailureLocked reports whether the session ended and whether the outcome was applied
// at all (false when the state moved on while the re-query was pending).
func (c *Controller) settleFailureLocked(epoch uint64, previous *domain.ActiveSession, reason string, active domain.ActiveClock, err error) (ended, applied bool) {
	if c.closed || c.epoch != epoch {
		observability.RecordReconciliation("stale")
		return false, false
	}

	if err != nil {
		observability.RecordReconciliation("failed")
		c.logger.Error("re-query after failure failed", zap.Error(err))
		if previous != nil {
			restored := *previous
			c.session = &restored
			c.transitionLocked(StateClockedIn, events.OutcomeRolledBack, reason)
			return false, true
		}
		c.session = nil
		c.transitionLocked(StateClockedOut, events.OutcomeRolledBack, reason)
		return true, true
	}

	if !active.IsActive && previous == nil {
		c.session = nil
		observability.RecordReconciliation("corrected")
		c.transitionLocked(StateClockedOut, events.OutcomeRolledBack, reason)
		return true, true
	}
	if active.IsActive && previous != nil {
		observability.RecordReconciliation("corrected")
		c.session = sessionFromRemote(active, previous)
		c.transitionLocked(StateClockedIn, events.OutcomeRolledBack, reason)
		return false, true
	}
	return c.applyRemoteLocked(active, events.OutcomeReconciled, reason), true
}

// applyRemoteLocked makes local state match the remote active clock. It reports whether a
// local session was ended; the caller clears the break once the lock is released.
func (c *Controller) applyRemoteLocked(active domain.ActiveClock, outcome events.Outcome, reason string) bool {
	if active.IsActive {
		matches := c.state == StateClockedIn && c.session != nil &&
			c.session.TaskID == active.TaskID && c.session.ClockIn.Equal(active.ClockIn)
		c.session = sessionFromRemote(active, c.session)
		if matches {
			observability.RecordReconciliation("match")
			return false
		}
		observability.RecordReconciliation("corrected")
		c.transitionLocked(StateClockedIn, outcome, reason)
		return false
	}

	if c.state == StateClockedOut && c.session == nil {
		observability.RecordReconciliation("match")
		return false
	}
	observability.RecordReconciliation("corrected")
	c.session = nil
	c.transitionLocked(StateClockedOut, outcome, reason)
	return true
}

func (c *Controller) fetchActive(ctx context.Context) (domain.ActiveClock, error) {
	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	return c.api.ActiveClock(rctx)
}

// sessionFromRemote builds a confirmed session from the remote view, keeping the local
// correlation id when it describes the same session as local.
func sessionFromRemote(active domain.ActiveClock, local *domain.ActiveSession) *domain.ActiveSession {
	session := &domain.ActiveSession{
		LocalID:       uuid.NewString(),
		TaskID:        active.TaskID,
		ClockIn:       active.ClockIn,
		Shift:         active.Shift,
		Note:          active.Note,
		AssignedShift: active.AssignedShift,
		Phase:         domain.PhaseConfirmed,
	}
	if local != nil && local.TaskID == active.TaskID {
		session.LocalID = local.LocalID
	}
	if session.Shift == "" {
		session.Shift = session.AssignedShift
	}
	return session
}
