// ABOUTME: Tests for the Bot API client against a fake Telegram server
// ABOUTME: Checks the request each Responder method sends

package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joey-c/stickertaggerbot/internal/bot"
	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

const testToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZ012345678"

type apiCall struct {
	method string
	body   map[string]any
}

// fakeAPI answers Bot API requests and records them.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, body: body})
	f.mu.Unlock()

	var result string
	switch method {
	case "getMe":
		result = `{"id":1,"is_bot":true,"first_name":"Tagger","username":"StickerTaggerBot"}`
	case "sendMessage", "sendSticker":
		result = `{"message_id":1,"date":0,"chat":{"id":22,"type":"private"}}`
	default:
		result = `true`
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":`+result+`}`)
}

func (f *fakeAPI) last(t *testing.T) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(testToken, Options{APIServer: srv.URL}, logger)
	require.NoError(t, err)
	return c, api
}

func TestNew_RejectsBadToken(t *testing.T) {
	_, err := New("not-a-token", Options{}, nil)
	assert.Error(t, err)
}

func TestClient_Username(t *testing.T) {
	c, _ := newTestClient(t)

	name, err := c.Username(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "StickerTaggerBot", name)
}

func TestClient_SendText(t *testing.T) {
	c, api := newTestClient(t)

	require.NoError(t, c.SendText(context.Background(), 22, "hello"))

	call := api.last(t)
	assert.Equal(t, "sendMessage", call.method)
	assert.Equal(t, float64(22), call.body["chat_id"])
	assert.Equal(t, "hello", call.body["text"])
}

func TestClient_SendButtons(t *testing.T) {
	c, api := newTestClient(t)

	err := c.SendButtons(context.Background(), 22, "Label(s) received:\ncat", []bot.Button{
		{Text: "Confirm", Data: "confirm+LABELLING+AgADsh"},
		{Text: "Cancel", Data: "cancel+LABELLING+AgADsh"},
	})
	require.NoError(t, err)

	call := api.last(t)
	assert.Equal(t, "sendMessage", call.method)
	markup, ok := call.body["reply_markup"].(map[string]any)
	require.True(t, ok)
	rows, ok := markup["inline_keyboard"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].([]any)
	require.Len(t, row, 2)
	first := row[0].(map[string]any)
	assert.Equal(t, "Confirm", first["text"])
	assert.Equal(t, "confirm+LABELLING+AgADsh", first["callback_data"])
}

func TestClient_SendSticker(t *testing.T) {
	c, api := newTestClient(t)

	require.NoError(t, c.SendSticker(context.Background(), 22, "long-file-id"))

	call := api.last(t)
	assert.Equal(t, "sendSticker", call.method)
	assert.Equal(t, "long-file-id", call.body["sticker"])
}

func TestClient_AnswerCallback(t *testing.T) {
	c, api := newTestClient(t)

	require.NoError(t, c.AnswerCallback(context.Background(), "cb", ""))

	call := api.last(t)
	assert.Equal(t, "answerCallbackQuery", call.method)
	assert.Equal(t, "cb", call.body["callback_query_id"])
	assert.NotContains(t, call.body, "text")
}

func TestClient_AnswerInline(t *testing.T) {
	c, api := newTestClient(t)

	err := c.AnswerInline(context.Background(), "iq", bot.InlineAnswer{
		Stickers: []conversation.Sticker{
			{UniqueID: "u1", FileID: "f1"},
			{UniqueID: "u2", FileID: "f2"},
		},
		CacheTime: 10,
		Personal:  true,
	})
	require.NoError(t, err)

	call := api.last(t)
	assert.Equal(t, "answerInlineQuery", call.method)
	assert.Equal(t, "iq", call.body["inline_query_id"])
	assert.Equal(t, true, call.body["is_personal"])
	assert.Equal(t, float64(10), call.body["cache_time"])

	results, ok := call.body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "sticker", first["type"])
	assert.Equal(t, "u1", first["id"])
	assert.Equal(t, "f1", first["sticker_file_id"])
}

func TestInlineParams_Article(t *testing.T) {
	params := inlineParams("iq", bot.InlineAnswer{
		Article: &bot.InlineArticle{
			ID:          "not-started",
			Title:       "You have not labelled any stickers.",
			Description: "Chat with me to start labelling!",
			Text:        "Chat with me to start labelling!",
		},
		StartButton: "Start",
		CacheTime:   2,
		Personal:    true,
	})

	require.Len(t, params.Results, 1)
	require.NotNil(t, params.Button)
	assert.Equal(t, "Start", params.Button.Text)
	assert.NotEmpty(t, params.Button.StartParameter)
	assert.Equal(t, 2, params.CacheTime)
	assert.True(t, params.IsPersonal)
}

func TestSlogLogger_RedactsToken(t *testing.T) {
	var buf strings.Builder
	l := slogLogger{
		logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		token:  testToken,
	}

	l.Errorf("request to https://api.telegram.org/bot%s/getMe failed", testToken)

	assert.NotContains(t, buf.String(), testToken)
	assert.Contains(t, buf.String(), "BOT_TOKEN")
}
