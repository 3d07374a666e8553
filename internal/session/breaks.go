package session

import (
	"github.com/google/uuid"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/observability"
	"example.com/laborsync/internal/timer"
)

// Break event states.
const (
	BreakStarted   = "started"
	BreakCancelled = "cancelled"
	BreakExpired   = "expired"
	BreakCleared   = "cleared"
)

// StartBreak begins a break. It requires an active session and no running break.
func (c *Controller) StartBreak() error {
	c.idle.Reset()

	c.mu.Lock()
	err := c.guardLocked()
	c.mu.Unlock()
	if err != nil {
		return c.reject("start break", err)
	}

	if err := c.breaks.Start(); err != nil {
		return c.reject("start break", err)
	}
	c.publishBreak(BreakStarted, c.breaks.State())
	return nil
}

// CancelBreak ends a running break early.
func (c *Controller) CancelBreak() error {
	c.idle.Reset()

	c.mu.Lock()
	err := c.guardLocked()
	c.mu.Unlock()
	if err != nil {
		return c.reject("cancel break", err)
	}

	if err := c.breaks.Cancel(); err != nil {
		return c.reject("cancel break", err)
	}
	c.publishBreak(BreakCancelled, c.breaks.State())
	return nil
}

// endBreak force-clears a running break because the session ended. A break belonging to a
// session started since is left alone.
func (c *Controller) endBreak(reason string) {
	if !c.breaks.State().Active || c.hasSession() {
		return
	}
	c.breaks.SessionEnded()
	c.logger.Debug("break cleared: " + reason)
	c.publishBreak(BreakCleared, c.breaks.State())
}

func (c *Controller) onBreakExpired() {
	observability.RecordBreakExpired()
	c.notify(domain.SeverityInfo, "Your break is over")
	c.publishBreak(BreakExpired, c.breaks.State())
}

func (c *Controller) publishBreak(state string, brk timer.BreakState) {
	c.mu.Lock()
	username := c.username
	c.mu.Unlock()

	remaining := brk.Remaining
	if !brk.Active {
		remaining = 0
	}
	c.publish(events.BreakStateChanged{
		EventID:          uuid.NewString(),
		Username:         username,
		State:            state,
		RemainingSeconds: remaining,
		OccurredAt:       c.clock.Now().UTC(),
	})
}
