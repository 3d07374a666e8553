package session

import (
	"context"

	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
)

// RefreshHistory reloads the worker's clock records.
func (c *Controller) RefreshHistory(ctx context.Context) error {
	generation, err := c.readGeneration()
	if err != nil {
		return err
	}

	rctx, cancel := c.remoteContext(ctx)
	history, err := c.api.ClockHistory(rctx)
	cancel()
	if err != nil {
		c.logger.Error("history refresh failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation && !c.closed {
		c.history = history
	}
	return nil
}

// RefreshTasks reloads the tasks the worker may clock in against.
func (c *Controller) RefreshTasks(ctx context.Context) error {
	generation, err := c.readGeneration()
	if err != nil {
		return err
	}

	rctx, cancel := c.remoteContext(ctx)
	tasks, err := c.api.UserTasks(rctx)
	cancel()
	if err != nil {
		c.logger.Error("task refresh failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation && !c.closed {
		c.tasks = tasks
	}
	return nil
}

// RefreshPoints reloads the worker's points balance.
func (c *Controller) RefreshPoints(ctx context.Context) error {
	generation, err := c.readGeneration()
	if err != nil {
		return err
	}

	rctx, cancel := c.remoteContext(ctx)
	points, err := c.api.UserPoints(rctx)
	cancel()
	if err != nil {
		c.logger.Error("points refresh failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation && !c.closed {
		c.points = &points
	}
	return nil
}

// readGeneration returns the current sign-in generation; refreshed data is only stored while
// the same sign-in is still current.
func (c *Controller) readGeneration() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return 0, err
	}
	return c.generation, nil
}

func (c *Controller) refreshHistoryQuietly(ctx context.Context) {
	if err := c.RefreshHistory(ctx); err != nil {
		c.notify(domain.SeverityWarning, "Could not refresh history")
	}
}
