// ABOUTME: Handler for Confirm and Cancel button presses on the label confirmation
// ABOUTME: Confirm commits the labels in the background; Cancel steps back to ask for labels again

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joey-c/stickertaggerbot/internal/callback"
	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/store"
	"github.com/joey-c/stickertaggerbot/internal/task"
)

const taskAddStickerLabels = "add_sticker_labels"

func (d *Dispatcher) handleCallback(ctx context.Context, logger *slog.Logger, u Update) {
	// Always answer so the client stops showing a progress indicator.
	if err := d.responder.AnswerCallback(ctx, u.Callback.ID, ""); err != nil {
		logger.Warn("failed to answer callback query", "error", err)
	}

	chatID := u.ChatID
	if chatID == 0 {
		// A private chat's ID is the user's ID.
		chatID = u.From.ID
	}

	token, err := callback.Decode(u.Callback.Data)
	if err != nil {
		logger.Warn("undecodable callback data", "data", truncate(u.Callback.Data, 64), "error", err)
		d.send(ctx, logger, chatID, msgUnknown)
		return
	}
	logger = logger.With("action", token.Action, "sticker", token.ItemID)

	conv := d.registry.Get(u.From.ID)
	if conv == nil {
		logger.Debug("callback for unknown conversation")
		d.send(ctx, logger, chatID, msgUnknown)
		return
	}

	var reply string
	switch token.Action {
	case callback.ActionConfirm:
		reply = d.confirm(ctx, logger, u.From, conv, token)
	case callback.ActionCancel:
		reply = d.cancelLabels(logger, conv, token)
	}
	if reply != "" {
		d.send(ctx, logger, conv.ChatID(), reply)
	}
}

// current reports whether token was issued for the conversation's present
// state and sticker. Callers hold the conversation lock.
func current(conv *conversation.Conversation, token callback.Token) bool {
	item := conv.Item()
	return item != nil && item.UniqueID == token.ItemID && conv.State() == token.State
}

// cancelLabels steps back to ITEM_RECEIVED. The sticker was already found to
// be new, so the step is restored with a resolved check.
func (d *Dispatcher) cancelLabels(logger *slog.Logger, conv *conversation.Conversation, token callback.Token) string {
	conv.Lock()
	defer conv.Unlock()

	if !current(conv, token) {
		logger.Debug("stale callback")
		return msgStale
	}
	_ = conv.RollbackState(
		conversation.To(conversation.StateItemReceived),
		conversation.WithTask(task.Resolved(taskStickerIsNew, true)),
	)
	return msgReLabel
}

// confirm saves the labels and returns the reply.
func (d *Dispatcher) confirm(ctx context.Context, logger *slog.Logger, from User, conv *conversation.Conversation, token callback.Token) string {
	commit, generation, labels, reply := d.startConfirm(ctx, logger, from, conv, token)
	if commit == nil {
		return reply
	}

	outcome := conversation.Await(commit, d.opts.TaskTimeout)
	d.metrics.ObserveTaskOutcome(taskAddStickerLabels, outcome)

	return d.finishConfirm(ctx, logger, conv, commit, generation, labels, outcome)
}

// startConfirm moves to CONFIRMING with the commit attached. A nil task means
// nothing was started and reply says why.
func (d *Dispatcher) startConfirm(ctx context.Context, logger *slog.Logger, from User, conv *conversation.Conversation, token callback.Token) (commit *task.Task, generation uint64, labels []string, reply string) {
	conv.Lock()
	defer conv.Unlock()

	if !current(conv, token) {
		logger.Debug("stale callback")
		return nil, 0, nil, msgStale
	}

	item := *conv.Item()
	labels = conv.Labels()
	commit = d.pool.Submit(taskAddStickerLabels, d.commitFunc(from, conv.ChatID(), item, labels))

	tctx, cancel := context.WithTimeout(ctx, d.opts.TransitionTimeout)
	err := conv.AttemptTransition(tctx, conversation.StateConfirming, commit)
	cancel()
	if err != nil {
		commit.Cancel()
		logger.Error("failed to start confirmation", "error", err)
		return nil, 0, nil, msgUnknown
	}
	return commit, conv.Generation(), labels, ""
}

func (d *Dispatcher) finishConfirm(ctx context.Context, logger *slog.Logger, conv *conversation.Conversation, commit *task.Task, generation uint64, labels []string, outcome conversation.Outcome) string {
	conv.Lock()
	defer conv.Unlock()

	switch {
	case conv.Generation() != generation:
		logger.Debug("confirmation superseded", "outcome", outcome)
		return ""

	case outcome == conversation.OutcomeAccepted:
		logger.Info("sticker labelled", "labels", len(labels))
		if err := conv.AttemptTransition(ctx, conversation.StateInitial, nil); err != nil {
			logger.Error("failed to finish conversation", "error", err)
		}
		return msgSuccess

	default:
		if err := commit.Err(); err != nil {
			logger.Error("failed to save labels", "error", err)
		} else {
			logger.Warn("saving labels timed out", "timeout", d.opts.TaskTimeout)
		}
		_ = conv.RollbackState()
		return msgUnknown
	}
}

// commitFunc saves the labels, creating the user first if /start was skipped.
func (d *Dispatcher) commitFunc(from User, chatID int64, item conversation.Sticker, labels []string) task.Func {
	sticker := store.Sticker{
		UniqueID: item.UniqueID,
		FileID:   item.FileID,
		SetName:  item.SetName,
	}
	return func(ctx context.Context) (bool, error) {
		if err := d.ensureUser(ctx, from, chatID); err != nil {
			return false, fmt.Errorf("creating user: %w", err)
		}
		if err := d.store.AddStickerLabels(ctx, from.ID, sticker, labels); err != nil {
			return false, fmt.Errorf("adding sticker labels: %w", err)
		}
		return true, nil
	}
}
