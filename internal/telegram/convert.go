// ABOUTME: Converts telego updates into transport-neutral bot.Update values
// ABOUTME: Commands lose their slash and @botname; stickers keep their unique ID for callback data

package telegram

import (
	"strings"

	"github.com/mymmrac/telego"

	"github.com/joey-c/stickertaggerbot/internal/bot"
	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

// AllowedUpdates are the update types requested from Telegram.
var AllowedUpdates = []string{
	"message",
	"callback_query",
	"inline_query",
	"chosen_inline_result",
}

// ConvertUpdate maps u onto a bot.Update. It reports false for updates the
// bot does not handle, such as edited messages or messages without a sender.
func ConvertUpdate(u telego.Update) (bot.Update, bool) {
	out := bot.Update{ID: int64(u.UpdateID)}

	switch {
	case u.Message != nil:
		msg := u.Message
		if msg.From == nil || msg.From.IsBot {
			return out, false
		}
		out.From = convertUser(*msg.From)
		out.ChatID = msg.Chat.ID

		switch {
		case msg.Sticker != nil:
			out.Sticker = &conversation.Sticker{
				FileID:   msg.Sticker.FileID,
				UniqueID: msg.Sticker.FileUniqueID,
				SetName:  msg.Sticker.SetName,
				Emoji:    msg.Sticker.Emoji,
			}
		case isCommand(msg):
			out.Command = parseCommand(msg.Text)
		case msg.Text != "":
			out.Text = msg.Text
		default:
			return out, false
		}

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		out.From = convertUser(q.From)
		if q.Message != nil {
			out.ChatID = q.Message.GetChat().ID
		}
		out.Callback = &bot.CallbackQuery{ID: q.ID, Data: q.Data}

	case u.InlineQuery != nil:
		q := u.InlineQuery
		out.From = convertUser(q.From)
		out.InlineQuery = &bot.InlineQuery{ID: q.ID, Query: q.Query}

	case u.ChosenInlineResult != nil:
		r := u.ChosenInlineResult
		out.From = convertUser(r.From)
		out.ChosenResult = &bot.ChosenResult{ResultID: r.ResultID, Query: r.Query}

	default:
		return out, false
	}

	return out, true
}

func convertUser(u telego.User) bot.User {
	return bot.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}

// isCommand reports whether the message starts with a bot_command entity.
// Plain text starting with a slash but without the entity also counts, since
// some clients omit entities.
func isCommand(msg *telego.Message) bool {
	for _, e := range msg.Entities {
		if e.Type == telego.EntityTypeBotCommand && e.Offset == 0 {
			return true
		}
	}
	return strings.HasPrefix(msg.Text, "/") && len(msg.Text) > 1
}

// parseCommand returns the command name without the slash, @botname or arguments.
func parseCommand(text string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, _, _ = strings.Cut(name, "@")
	name, _, _ = strings.Cut(name, "\n")
	return strings.ToLower(name)
}
