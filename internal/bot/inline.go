// ABOUTME: Handlers for inline queries and for the inline result a user picked
// ABOUTME: Searches the user's stickers by label and counts which sticker was sent for which labels

package bot

import (
	"context"
	"log/slog"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

// Inline answers without stickers are cached briefly so that a user who has
// just labelled a sticker sees it quickly.
const (
	emptyInlineCacheTime   = 2
	stickerInlineCacheTime = 10
)

func (d *Dispatcher) handleInlineQuery(ctx context.Context, logger *slog.Logger, u Update) {
	q := u.InlineQuery

	has, err := d.store.HasAssociations(ctx, u.From.ID)
	if err != nil {
		logger.Error("failed to check associations", "error", err)
		return
	}

	var answer InlineAnswer
	if !has {
		answer = InlineAnswer{
			Article: &InlineArticle{
				ID:          "not-started",
				Title:       inlineNotStarted,
				Description: inlineChatToStart,
				Text:        inlineChatToStart,
			},
			StartButton: inlineStartButton,
			CacheTime:   emptyInlineCacheTime,
			Personal:    true,
		}
		d.answerInline(ctx, logger, q.ID, answer)
		return
	}

	labels := parseLabels(q.Query)
	found, err := d.store.SearchStickers(ctx, u.From.ID, labels, d.opts.InlineResultLimit)
	if err != nil {
		logger.Error("failed to search stickers", "error", err)
		return
	}

	if len(found) == 0 {
		answer = InlineAnswer{
			Article: &InlineArticle{
				ID:          "no-results",
				Title:       inlineNoResults,
				Description: inlineChatToLabel,
				Text:        inlineChatToLabel,
			},
			CacheTime: emptyInlineCacheTime,
			Personal:  true,
		}
	} else {
		stickers := make([]conversation.Sticker, 0, len(found))
		for _, s := range found {
			stickers = append(stickers, conversation.Sticker{
				FileID:   s.FileID,
				UniqueID: s.UniqueID,
				SetName:  s.SetName,
			})
		}
		answer = InlineAnswer{
			Stickers:  stickers,
			CacheTime: stickerInlineCacheTime,
			Personal:  true,
		}
	}

	logger.Debug("answering inline query", "labels", len(labels), "results", len(found))
	d.answerInline(ctx, logger, q.ID, answer)
}

func (d *Dispatcher) answerInline(ctx context.Context, logger *slog.Logger, queryID string, answer InlineAnswer) {
	if err := d.responder.AnswerInline(ctx, queryID, answer); err != nil {
		logger.Error("failed to answer inline query", "error", err)
	}
}

// handleChosenResult credits the chosen sticker for every label in the query.
// Sticker results use the sticker's unique ID as their result ID.
func (d *Dispatcher) handleChosenResult(ctx context.Context, logger *slog.Logger, u Update) {
	chosen := u.ChosenResult
	labels := parseLabels(chosen.Query)
	if len(labels) == 0 {
		return
	}

	if err := d.store.IncrementUsage(ctx, u.From.ID, chosen.ResultID, labels); err != nil {
		logger.Error("failed to record usage", "sticker", chosen.ResultID, "error", err)
		return
	}
	logger.Debug("recorded usage", "sticker", chosen.ResultID, "labels", len(labels))
}
