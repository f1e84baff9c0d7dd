// ABOUTME: Transport-neutral inbound events and the outbound Responder contract
// ABOUTME: The Telegram adapter converts Bot API updates into these and implements Responder

package bot

import (
	"context"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

// Kind classifies an update for dispatch and metrics.
type Kind string

const (
	KindCommand      Kind = "command"
	KindSticker      Kind = "sticker"
	KindText         Kind = "text"
	KindCallback     Kind = "callback"
	KindInlineQuery  Kind = "inline_query"
	KindChosenResult Kind = "chosen_inline_result"
	KindUnsupported  Kind = "unsupported"
)

// User is the sender of an update.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID   string
	Data string
}

// InlineQuery is text typed after the bot's @username in any chat.
type InlineQuery struct {
	ID    string
	Query string
}

// ChosenResult reports which inline result the user sent.
type ChosenResult struct {
	ResultID string
	Query    string
}

// Update is one inbound event. Exactly one of the payload fields is set.
type Update struct {
	ID     int64
	From   User
	ChatID int64 // zero for inline queries and chosen results

	Command string // without the leading slash or @botname
	Text    string
	Sticker *conversation.Sticker

	Callback     *CallbackQuery
	InlineQuery  *InlineQuery
	ChosenResult *ChosenResult
}

// Kind reports which handler the update belongs to.
func (u Update) Kind() Kind {
	switch {
	case u.Callback != nil:
		return KindCallback
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.ChosenResult != nil:
		return KindChosenResult
	case u.Sticker != nil:
		return KindSticker
	case u.Command != "":
		return KindCommand
	case u.Text != "":
		return KindText
	default:
		return KindUnsupported
	}
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// InlineArticle is a text-only inline result.
type InlineArticle struct {
	ID          string
	Title       string
	Description string
	Text        string
}

// InlineAnswer is the reply to an inline query. Either Stickers or Article is set.
type InlineAnswer struct {
	Stickers []conversation.Sticker
	Article  *InlineArticle

	// StartButton, when set, shows a button above the results that opens a
	// private chat with the bot.
	StartButton string
	CacheTime   int
	Personal    bool
}

// Responder delivers replies. Failures are logged by the caller and never
// affect conversation state.
type Responder interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error
	SendSticker(ctx context.Context, chatID int64, fileID string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	AnswerInline(ctx context.Context, queryID string, answer InlineAnswer) error
}
