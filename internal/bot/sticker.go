// ABOUTME: Handler for an incoming sticker, which always starts a new conversation
// ABOUTME: Pre-empts any labelling in progress and checks in the background whether the sticker is new

package bot

import (
	"context"
	"log/slog"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/task"
)

const taskStickerIsNew = "sticker_is_new"

func (d *Dispatcher) handleSticker(ctx context.Context, logger *slog.Logger, u Update) {
	conv, err := d.registry.GetOrCreate(u.From.ID, u.ChatID)
	if err != nil {
		logger.Error("failed to get conversation", "error", err)
		return
	}

	sticker := *u.Sticker
	logger = logger.With("sticker", sticker.UniqueID)

	check, generation := d.startSticker(conv, u.From.ID, sticker)

	outcome := conversation.Await(check, d.opts.TaskTimeout)
	d.metrics.ObserveTaskOutcome(taskStickerIsNew, outcome)

	if reply := d.settleSticker(logger, conv, check, generation, outcome); reply != "" {
		d.send(ctx, logger, conv.ChatID(), reply)
	}
}

// startSticker submits the novelty check and forces the conversation onto the sticker.
func (d *Dispatcher) startSticker(conv *conversation.Conversation, userID int64, sticker conversation.Sticker) (*task.Task, uint64) {
	conv.Lock()
	defer conv.Unlock()

	check := d.pool.Submit(taskStickerIsNew, func(ctx context.Context) (bool, error) {
		return d.store.StickerIsNew(ctx, userID, sticker.UniqueID)
	})
	conv.ForceTransition(conversation.StateItemReceived, check)
	conv.SetItem(&sticker)
	return check, conv.Generation()
}

// settleSticker applies the check's outcome and returns the reply, if any.
func (d *Dispatcher) settleSticker(logger *slog.Logger, conv *conversation.Conversation, check *task.Task, generation uint64, outcome conversation.Outcome) string {
	conv.Lock()
	defer conv.Unlock()

	switch {
	case conv.Generation() != generation:
		logger.Debug("sticker check superseded", "outcome", outcome)
		return ""

	case outcome == conversation.OutcomeAccepted:
		// Labels may already have arrived while the check ran.
		if conv.State() == conversation.StateItemReceived {
			return msgLabel
		}
		return ""

	case outcome == conversation.OutcomeRejected:
		_ = conv.RollbackState(conversation.To(conversation.StateInitial))
		if err := check.Err(); err != nil {
			logger.Error("sticker check failed", "error", err)
			return msgUnknown
		}
		return msgStickerExists

	default:
		logger.Warn("sticker check timed out", "timeout", d.opts.TaskTimeout)
		_ = conv.RollbackState(conversation.To(conversation.StateInitial))
		return msgUnknown
	}
}
