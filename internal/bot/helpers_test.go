// ABOUTME: Shared fixtures for handler tests
// ABOUTME: A recording Responder, a store whose sticker check can be held open, and a dispatcher builder

package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/dedupe"
	"github.com/joey-c/stickertaggerbot/internal/store"
	"github.com/joey-c/stickertaggerbot/internal/task"
)

const (
	testUserID int64 = 1001
	testChatID int64 = 2002
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentText struct {
	chatID int64
	text   string
}

type sentButtons struct {
	chatID  int64
	text    string
	buttons []Button
}

type inlineReply struct {
	queryID string
	answer  InlineAnswer
}

// recordingResponder remembers everything the bot tried to send.
type recordingResponder struct {
	mu        sync.Mutex
	texts     []sentText
	buttons   []sentButtons
	stickers  []string
	callbacks []string
	inline    []inlineReply
	failSend  error
}

func (r *recordingResponder) SendText(ctx context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend != nil {
		return r.failSend
	}
	r.texts = append(r.texts, sentText{chatID: chatID, text: text})
	return nil
}

func (r *recordingResponder) SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons = append(r.buttons, sentButtons{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (r *recordingResponder) SendSticker(ctx context.Context, chatID int64, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stickers = append(r.stickers, fileID)
	return nil
}

func (r *recordingResponder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, callbackID)
	return nil
}

func (r *recordingResponder) AnswerInline(ctx context.Context, queryID string, answer InlineAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inline = append(r.inline, inlineReply{queryID: queryID, answer: answer})
	return nil
}

// textsSent returns the texts of every SendText call, in order.
func (r *recordingResponder) textsSent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.texts))
	for _, t := range r.texts {
		out = append(out, t.text)
	}
	return out
}

func (r *recordingResponder) lastButtons(t *testing.T) sentButtons {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.buttons, "no buttons were sent")
	return r.buttons[len(r.buttons)-1]
}

func (r *recordingResponder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = nil
	r.buttons = nil
	r.stickers = nil
	r.callbacks = nil
	r.inline = nil
}

// gatedStore holds StickerIsNew for the "slow" sticker until release is closed.
type gatedStore struct {
	*store.MockStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

const slowSticker = "slow"

func newGatedStore() *gatedStore {
	return &gatedStore{
		MockStore: store.NewMockStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedStore) StickerIsNew(ctx context.Context, userID int64, uniqueID string) (bool, error) {
	if uniqueID == slowSticker {
		g.once.Do(func() { close(g.entered) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return g.MockStore.StickerIsNew(ctx, userID, uniqueID)
}

type testEnv struct {
	dispatcher *Dispatcher
	registry   *conversation.Registry
	store      store.Store
	responder  *recordingResponder
}

func newTestEnv(t *testing.T, st store.Store, opts Options) *testEnv {
	t.Helper()

	if st == nil {
		st = store.NewMockStore()
	}
	if opts.TaskTimeout == 0 {
		opts.TaskTimeout = 2 * time.Second
	}
	if opts.TransitionTimeout == 0 {
		opts.TransitionTimeout = 2 * time.Second
	}

	pool := task.NewPool(4, testLogger())
	t.Cleanup(pool.Close)

	seen := dedupe.New[int64](time.Minute, 100)
	t.Cleanup(seen.Close)

	registry := conversation.NewRegistry(testLogger(), nil)
	responder := &recordingResponder{}

	d := NewDispatcher(Deps{
		Registry:  registry,
		Pool:      pool,
		Store:     st,
		Responder: responder,
		Seen:      seen,
		Logger:    testLogger(),
	}, opts)
	t.Cleanup(d.Wait)

	return &testEnv{
		dispatcher: d,
		registry:   registry,
		store:      st,
		responder:  responder,
	}
}

var testUser = User{ID: testUserID, FirstName: "Ada", Username: "ada"}

// updateIDs keeps test updates distinct so the dispatcher's duplicate check
// never swallows them.
var updateIDs atomic.Int64

func commandUpdate(cmd string) Update {
	return Update{ID: updateIDs.Add(1), From: testUser, ChatID: testChatID, Command: cmd}
}

func stickerUpdate(uniqueID string) Update {
	return Update{
		ID:     updateIDs.Add(1),
		From:   testUser,
		ChatID: testChatID,
		Sticker: &conversation.Sticker{
			FileID:   "file-" + uniqueID,
			UniqueID: uniqueID,
			SetName:  "animals",
		},
	}
}

func textUpdate(text string) Update {
	return Update{ID: updateIDs.Add(1), From: testUser, ChatID: testChatID, Text: text}
}

func callbackUpdate(data string) Update {
	return Update{
		ID:       updateIDs.Add(1),
		From:     testUser,
		ChatID:   testChatID,
		Callback: &CallbackQuery{ID: "cb-1", Data: data},
	}
}

func (e *testEnv) handle(u Update) {
	e.dispatcher.Handle(context.Background(), u)
}

func (e *testEnv) state(t *testing.T) conversation.State {
	t.Helper()
	conv := e.registry.Get(testUserID)
	require.NotNil(t, conv)
	conv.Lock()
	defer conv.Unlock()
	return conv.State()
}

// labelSticker walks a sticker through to LABELLING and returns the Confirm
// and Cancel callback data.
func (e *testEnv) labelSticker(t *testing.T, uniqueID, labels string) (confirm, cancel string) {
	t.Helper()
	e.handle(stickerUpdate(uniqueID))
	e.handle(textUpdate(labels))
	sent := e.responder.lastButtons(t)
	require.Len(t, sent.buttons, 2)
	return sent.buttons[0].Data, sent.buttons[1].Data
}
