// ABOUTME: Routes inbound updates to handlers, one goroutine per update
// ABOUTME: Drops redelivered updates and records per-kind metrics

package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/dedupe"
	"github.com/joey-c/stickertaggerbot/internal/store"
	"github.com/joey-c/stickertaggerbot/internal/task"
)

// Metrics receives dispatcher and handler measurements.
type Metrics interface {
	ObserveTaskOutcome(task string, outcome conversation.Outcome)
	ObserveUpdate(kind string, duration time.Duration)
	ObserveDuplicate()
}

type nopMetrics struct{}

func (nopMetrics) ObserveTaskOutcome(string, conversation.Outcome) {}
func (nopMetrics) ObserveUpdate(string, time.Duration)             {}
func (nopMetrics) ObserveDuplicate()                               {}

// Options tunes handler timing.
type Options struct {
	// TaskTimeout bounds how long a handler waits for a background check.
	TaskTimeout time.Duration
	// TransitionTimeout bounds how long a transition waits for the previous check.
	TransitionTimeout time.Duration
	// InlineResultLimit caps stickers per inline answer.
	InlineResultLimit int
}

// DefaultOptions returns the timings used when none are configured.
func DefaultOptions() Options {
	return Options{
		TaskTimeout:       10 * time.Second,
		TransitionTimeout: 15 * time.Second,
		InlineResultLimit: 50,
	}
}

// Deps are the collaborators a Dispatcher needs. Seen and Metrics are optional.
type Deps struct {
	Registry  *conversation.Registry
	Pool      *task.Pool
	Store     store.Store
	Responder Responder
	Seen      *dedupe.Cache[int64]
	Metrics   Metrics
	Logger    *slog.Logger
}

// Dispatcher owns the handlers and the goroutines running them.
type Dispatcher struct {
	registry  *conversation.Registry
	pool      *task.Pool
	store     store.Store
	responder Responder
	seen      *dedupe.Cache[int64]
	metrics   Metrics
	opts      Options
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher wires a Dispatcher. Zero option fields fall back to DefaultOptions.
func NewDispatcher(deps Deps, opts Options) *Dispatcher {
	defaults := DefaultOptions()
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaults.TaskTimeout
	}
	if opts.TransitionTimeout <= 0 {
		opts.TransitionTimeout = defaults.TransitionTimeout
	}
	if opts.InlineResultLimit <= 0 {
		opts.InlineResultLimit = defaults.InlineResultLimit
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = nopMetrics{}
	}

	return &Dispatcher{
		registry:  deps.Registry,
		pool:      deps.Pool,
		store:     deps.Store,
		responder: deps.Responder,
		seen:      deps.Seen,
		metrics:   m,
		opts:      opts,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Dispatch handles u on its own goroutine and returns immediately.
// Handlers outlive ctx cancellation so that in-flight replies are delivered;
// use Wait to drain them.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) {
	if d.seen != nil && d.seen.CheckAndMark(u.ID) {
		d.logger.Debug("dropping duplicate update", "update_id", u.ID)
		d.metrics.ObserveDuplicate()
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Handle(context.WithoutCancel(ctx), u)
	}()
}

// Wait blocks until every dispatched handler has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Handle runs the handler for u on the calling goroutine. A panicking handler
// is logged and recovered. Conversation locks are released with defer, so the
// user's conversation stays usable afterwards.
func (d *Dispatcher) Handle(ctx context.Context, u Update) {
	kind := u.Kind()
	logger := d.logger.With(
		"update_id", u.ID,
		"user_id", u.From.ID,
		"kind", kind,
		"correlation_id", uuid.NewString(),
	)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", "panic", r)
		}
		d.metrics.ObserveUpdate(string(kind), time.Since(start))
	}()

	logger.Debug("handling update")

	switch kind {
	case KindCommand:
		d.handleCommand(ctx, logger, u)
	case KindSticker:
		d.handleSticker(ctx, logger, u)
	case KindText:
		d.handleLabels(ctx, logger, u)
	case KindCallback:
		d.handleCallback(ctx, logger, u)
	case KindInlineQuery:
		d.handleInlineQuery(ctx, logger, u)
	case KindChosenResult:
		d.handleChosenResult(ctx, logger, u)
	default:
		logger.Debug("ignoring unsupported update")
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, logger *slog.Logger, u Update) {
	switch strings.ToLower(u.Command) {
	case "start":
		d.handleStart(ctx, logger, u)
	case "cancel":
		d.handleCancel(ctx, logger, u)
	default:
		d.send(ctx, logger, u.ChatID, msgHelp)
	}
}

// send delivers text and logs, rather than returns, any failure.
func (d *Dispatcher) send(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	if err := d.responder.SendText(ctx, chatID, text); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
		return
	}
	logger.Debug("sent message", "chat_id", chatID, "text", truncate(text, 40))
}

// parseLabels splits text on whitespace, lowercases and drops repeats.
func parseLabels(text string) []string {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	labels := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		label := strings.ToLower(f)
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
