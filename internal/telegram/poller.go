// ABOUTME: Long-polling loop feeding Telegram updates to the dispatcher
// ABOUTME: Runs until the context is cancelled or the update channel closes

package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	"github.com/joey-c/stickertaggerbot/internal/bot"
)

// Dispatcher accepts converted updates.
type Dispatcher interface {
	Dispatch(ctx context.Context, u bot.Update)
}

// Poll receives updates by long polling and hands each one to d. It returns
// nil once ctx is cancelled. Handlers still running are the dispatcher's
// concern.
func (c *Client) Poll(ctx context.Context, d Dispatcher, timeout time.Duration) error {
	params := &telego.GetUpdatesParams{
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: AllowedUpdates,
	}

	updates, err := c.bot.UpdatesViaLongPolling(ctx, params)
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}

	c.logger.Info("polling for updates", "timeout", timeout)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopped polling")
			return nil
		case u, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("update channel closed")
			}
			converted, ok := ConvertUpdate(u)
			if !ok {
				c.logger.Debug("skipping update", "update_id", u.UpdateID)
				continue
			}
			d.Dispatch(ctx, converted)
		}
	}
}
