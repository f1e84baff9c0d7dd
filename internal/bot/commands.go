// ABOUTME: Handlers for /start and /cancel
// ABOUTME: /start registers the user; /cancel abandons the sticker being labelled

package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/store"
)

func (d *Dispatcher) handleStart(ctx context.Context, logger *slog.Logger, u Update) {
	if err := d.ensureUser(ctx, u.From, u.ChatID); err != nil {
		logger.Error("failed to create user", "error", err)
		d.send(ctx, logger, u.ChatID, msgUnknown)
		return
	}
	d.send(ctx, logger, u.ChatID, msgStart)
}

func (d *Dispatcher) handleCancel(ctx context.Context, logger *slog.Logger, u Update) {
	conv := d.registry.Get(u.From.ID)
	if conv == nil {
		d.send(ctx, logger, u.ChatID, msgNotStarted)
		return
	}

	if !resetStarted(conv) {
		d.send(ctx, logger, u.ChatID, msgNotStarted)
		return
	}
	logger.Info("conversation cancelled")
	d.send(ctx, logger, u.ChatID, msgCancelled)
}

// resetStarted abandons the conversation unless it is already INITIAL and
// reports whether it did.
func resetStarted(conv *conversation.Conversation) bool {
	conv.Lock()
	defer conv.Unlock()

	if conv.State() == conversation.StateInitial {
		return false
	}
	conv.Reset()
	return true
}

// ensureUser creates the user's row unless it already exists.
func (d *Dispatcher) ensureUser(ctx context.Context, from User, chatID int64) error {
	err := d.store.CreateUser(ctx, &store.User{
		ID:           from.ID,
		ChatID:       chatID,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		Username:     from.Username,
		LanguageCode: from.LanguageCode,
	})
	if errors.Is(err, store.ErrDuplicateUser) {
		return nil
	}
	return err
}
