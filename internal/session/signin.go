package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/laborsync/internal/auth"
	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/observability"
)

// Sign-out reasons.
const (
	ReasonLogout = "logout"
	ReasonIdle   = "idle"
)

// Authenticate signs the worker in with a bearer token, arms the idle timer and reconciles
// against the remote active clock.
func (c *Controller) Authenticate(ctx context.Context, token string) error {
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	if claims.Expired(c.clock.Now()) {
		return fmt.Errorf("%w: token expired", domain.ErrNotAuthenticated)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.authenticated && c.username != claims.Username {
		c.mu.Unlock()
		return &domain.TransitionError{Action: "sign in as " + claims.Username, From: "signed in as " + c.username}
	}
	c.authenticated = true
	c.username = claims.Username
	c.generation++
	c.epoch++
	c.mu.Unlock()

	if sink, ok := c.api.(tokenSink); ok {
		sink.SetToken(token)
	}
	c.idle.Arm()
	c.logger.Info("signed in", zap.String("username", claims.Username))

	return c.Reconcile(ctx)
}

// Logout signs the worker out. An active session is clocked out first.
func (c *Controller) Logout(ctx context.Context) error {
	return c.teardown(ctx, ReasonLogout)
}

func (c *Controller) onIdleExpired(ctx context.Context) {
	observability.RecordIdleLogout()
	c.notify(domain.SeverityWarning, "Signed out after inactivity")
	if err := c.teardown(ctx, ReasonIdle); err != nil {
		c.logger.Debug("idle sign-out skipped", zap.Error(err))
	}
}

// teardown clears local state immediately, then performs one implicit clock-out and the
// remote logout. Remote failures are logged and never keep the worker signed in.
func (c *Controller) teardown(ctx context.Context, reason string) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	session := c.session
	username := c.username
	c.session = nil
	c.authenticated = false
	c.generation++
	c.history = nil
	c.tasks = nil
	c.points = nil
	if c.state != StateUnknown {
		c.transitionLocked(StateUnknown, events.OutcomeConfirmed, reason)
	} else {
		c.epoch++
	}
	c.username = ""
	c.mu.Unlock()

	c.idle.Disarm()
	c.breaks.SessionEnded()

	implicit := false
	if session != nil {
		rctx, cancel := c.remoteContext(ctx)
		err := c.api.ClockOut(rctx, session.TaskID)
		cancel()
		if err != nil {
			c.logger.Error("implicit clock out failed", zap.String("task_id", session.TaskID), zap.Error(err))
		} else {
			implicit = true
		}
	}

	rctx, cancel := c.remoteContext(ctx)
	err := c.api.Logout(rctx)
	cancel()
	if err != nil {
		c.logger.Error("remote logout failed", zap.Error(err))
	}
	if sink, ok := c.api.(tokenSink); ok {
		sink.SetToken("")
	}

	c.publish(events.SignedOut{
		EventID:          uuid.NewString(),
		Username:         username,
		Reason:           reason,
		ImplicitClockOut: implicit,
		OccurredAt:       c.clock.Now().UTC(),
	})
	c.logger.Info("signed out", zap.String("username", username), zap.String("reason", reason), zap.Bool("implicit_clock_out", implicit))
	return nil
}
