// ABOUTME: Handler for plain text, read as the labels for the sticker being labelled
// ABOUTME: Echoes the sticker and asks for confirmation with inline buttons

package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joey-c/stickertaggerbot/internal/callback"
	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

func (d *Dispatcher) handleLabels(ctx context.Context, logger *slog.Logger, u Update) {
	conv := d.registry.Get(u.From.ID)
	if conv == nil {
		d.send(ctx, logger, u.ChatID, msgNotStarted)
		return
	}
	chatID := conv.ChatID()
	labels := parseLabels(u.Text)

	reply, fileID, buttons := d.acceptLabels(ctx, logger, conv, labels)
	if buttons == nil {
		if reply != "" {
			d.send(ctx, logger, chatID, reply)
		}
		return
	}

	logger.Info("labels received", "labels", len(labels))

	if err := d.responder.SendSticker(ctx, chatID, fileID); err != nil {
		logger.Error("failed to echo sticker", "error", err)
	}
	if err := d.responder.SendButtons(ctx, chatID, confirmText(labels), buttons); err != nil {
		logger.Error("failed to send confirmation", "error", err)
	}
}

// acceptLabels moves the conversation to LABELLING. On success it returns the
// sticker to echo and the confirmation buttons; otherwise the reply to send,
// which may be empty.
func (d *Dispatcher) acceptLabels(ctx context.Context, logger *slog.Logger, conv *conversation.Conversation, labels []string) (reply, fileID string, buttons []Button) {
	conv.Lock()
	defer conv.Unlock()

	previous := conv.PendingTask()

	tctx, cancel := context.WithTimeout(ctx, d.opts.TransitionTimeout)
	err := conv.AttemptTransition(tctx, conversation.StateLabelling, nil)
	cancel()

	if err != nil {
		logger.Debug("labels not accepted", "error", err)
		var terr *conversation.TransitionError
		switch {
		case errors.As(err, &terr) && terr.Current == conversation.StateInitial:
			return msgNotStarted, "", nil
		case errors.As(err, &terr):
			return msgRestart, "", nil
		default:
			logger.Warn("timed out waiting for previous step", "error", err)
			return msgUnknown, "", nil
		}
	}

	// The sticker check we waited on said no; the sticker handler reports it.
	if previous != nil && !previous.Value() {
		_ = conv.RollbackState()
		return "", "", nil
	}

	item := conv.Item()
	if item == nil {
		_ = conv.RollbackState(conversation.To(conversation.StateInitial))
		return msgNotStarted, "", nil
	}

	if len(labels) == 0 {
		_ = conv.RollbackState()
		return msgLabelMissing, "", nil
	}

	buttons, err = confirmButtons(item.UniqueID)
	if err != nil {
		_ = conv.RollbackState()
		logger.Error("failed to encode callback data", "sticker", item.UniqueID, "error", err)
		return msgUnknown, "", nil
	}

	conv.SetLabels(labels)
	return "", item.FileID, buttons
}

// confirmButtons builds the Confirm and Cancel buttons for a sticker in LABELLING.
func confirmButtons(itemID string) ([]Button, error) {
	actions := []callback.Action{callback.ActionConfirm, callback.ActionCancel}
	buttons := make([]Button, 0, len(actions))
	for _, action := range actions {
		data, err := callback.Encode(conversation.StateLabelling, itemID, action)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, Button{Text: action.Label(), Data: data})
	}
	return buttons, nil
}
