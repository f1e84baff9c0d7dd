// ABOUTME: telego-backed Telegram client that implements bot.Responder
// ABOUTME: Sends texts, stickers and keyboards, and answers callback and inline queries

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/joey-c/stickertaggerbot/internal/bot"
)

// sendTimeout bounds every outbound Bot API call.
const sendTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	// APIServer overrides the Bot API URL; empty uses Telegram's.
	APIServer string
}

// Client talks to the Telegram Bot API.
type Client struct {
	bot    *telego.Bot
	logger *slog.Logger
}

// New creates a Client for the given bot token.
func New(token string, opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telegram")

	botOpts := []telego.BotOption{
		telego.WithLogger(slogLogger{logger: logger, token: token}),
	}
	if opts.APIServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(opts.APIServer))
	}

	b, err := telego.NewBot(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Client{bot: b, logger: logger}, nil
}

// Username asks Telegram for the bot's @username. It doubles as a token check.
func (c *Client) Username(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("getting bot identity: %w", err)
	}
	return me.Username, nil
}

// SendText sends a plain message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendButtons sends a message with one row of inline keyboard buttons.
func (c *Client) SendButtons(ctx context.Context, chatID int64, text string, buttons []bot.Button) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	row := make([]telego.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
	}

	msg := tu.Message(tu.ID(chatID), text).WithReplyMarkup(tu.InlineKeyboard(row))
	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("sending keyboard: %w", err)
	}
	return nil
}

// SendSticker sends a sticker Telegram already knows by file ID.
func (c *Client) SendSticker(ctx context.Context, chatID int64, fileID string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := c.bot.SendSticker(ctx, tu.Sticker(tu.ID(chatID), tu.FileFromID(fileID))); err != nil {
		return fmt.Errorf("sending sticker: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}
	if err := c.bot.AnswerCallbackQuery(ctx, params); err != nil {
		return fmt.Errorf("answering callback query: %w", err)
	}
	return nil
}

// AnswerInline replies to an inline query.
func (c *Client) AnswerInline(ctx context.Context, queryID string, answer bot.InlineAnswer) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := c.bot.AnswerInlineQuery(ctx, inlineParams(queryID, answer)); err != nil {
		return fmt.Errorf("answering inline query: %w", err)
	}
	return nil
}

// inlineParams renders answer. Sticker results use the sticker's unique ID as
// their result ID so the chosen result can be credited without a lookup.
func inlineParams(queryID string, answer bot.InlineAnswer) *telego.AnswerInlineQueryParams {
	results := make([]telego.InlineQueryResult, 0, len(answer.Stickers)+1)
	for _, s := range answer.Stickers {
		results = append(results, tu.ResultCachedSticker(s.UniqueID, s.FileID))
	}
	if a := answer.Article; a != nil {
		results = append(results,
			tu.ResultArticle(a.ID, a.Title, tu.TextMessage(a.Text)).WithDescription(a.Description))
	}

	params := tu.InlineQuery(queryID, results...).WithCacheTime(answer.CacheTime)
	if answer.Personal {
		params = params.WithIsPersonal()
	}
	if answer.StartButton != "" {
		params = params.WithButton(&telego.InlineQueryResultsButton{
			Text:           answer.StartButton,
			StartParameter: "inline",
		})
	}
	return params
}

var _ bot.Responder = (*Client)(nil)
