// ABOUTME: Per-user conversation state machine with an attached background task
// ABOUTME: Enforces transition order, supports forced pre-emption and single-step rollback

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joey-c/stickertaggerbot/internal/task"
)

// Transition results reported to an Observer.
const (
	ResultApplied    = "applied"
	ResultForced     = "forced"
	ResultRejected   = "rejected"
	ResultRolledBack = "rolled_back"
	ResultReset      = "reset"
)

// Observer is notified of every state change attempt.
type Observer interface {
	ObserveTransition(from, to State, result string)
}

// Outcome is the three-valued result of awaiting a task.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Sticker is the item under discussion in a conversation.
type Sticker struct {
	FileID   string // used to send the sticker back
	UniqueID string // stable across bots; short enough for callback data
	SetName  string
	Emoji    string
}

// Conversation tracks one user's progress through labelling a sticker.
//
// Callers must hold Lock around any read-modify-write sequence. Only ActorID,
// ChatID, PendingTask and AwaitTaskResult are safe without it, and
// AwaitTaskResult should be called without it so that other events for the
// same user are not stalled while waiting.
type Conversation struct {
	mu sync.Mutex

	actorID int64
	chatID  int64

	state      State
	pending    atomic.Pointer[task.Task]
	item       *Sticker
	labels     []string
	generation uint64

	logger   *slog.Logger
	observer Observer
}

func newConversation(actorID, chatID int64, logger *slog.Logger, observer Observer) *Conversation {
	return &Conversation{
		actorID:  actorID,
		chatID:   chatID,
		state:    StateInitial,
		logger:   logger.With("user_id", actorID),
		observer: observer,
	}
}

// Lock acquires the conversation's mutex.
func (c *Conversation) Lock() { c.mu.Lock() }

// Unlock releases the conversation's mutex.
func (c *Conversation) Unlock() { c.mu.Unlock() }

// ActorID returns the user this conversation belongs to.
func (c *Conversation) ActorID() int64 { return c.actorID }

// ChatID returns where replies for this conversation are delivered.
func (c *Conversation) ChatID() int64 { return c.chatID }

// State returns the current state.
func (c *Conversation) State() State { return c.state }

// Generation changes every time the conversation starts over, either through a
// forced transition or a return to StateInitial. Handlers compare it before and
// after awaiting a task to detect that their work was superseded.
func (c *Conversation) Generation() uint64 { return c.generation }

// PendingTask returns the attached task, or nil.
func (c *Conversation) PendingTask() *task.Task { return c.pending.Load() }

// Item returns the sticker being labelled, or nil.
func (c *Conversation) Item() *Sticker { return c.item }

// SetItem attaches the sticker being labelled.
func (c *Conversation) SetItem(s *Sticker) { c.item = s }

// Labels returns a copy of the collected labels.
func (c *Conversation) Labels() []string { return slices.Clone(c.labels) }

// SetLabels replaces the collected labels.
func (c *Conversation) SetLabels(labels []string) { c.labels = slices.Clone(labels) }

// AttemptTransition moves to target if the transition table allows it. A
// still-running pending task is waited for first, bounded by ctx; if ctx ends
// nothing changes. On success t replaces the pending task.
func (c *Conversation) AttemptTransition(ctx context.Context, target State, t *task.Task) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown target %s", ErrInvalidArgument, target)
	}

	if prev := c.pending.Load(); prev != nil && !prev.Done() {
		c.logger.Debug("waiting for pending task",
			"task", prev.Name(),
			"state", c.state)
		if err := prev.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for pending task %s: %w", prev.Name(), err)
		}
	}

	from := c.state
	if !canTransition(from, target) {
		c.logger.Debug("transition rejected", "from", from, "to", target)
		c.observe(from, target, ResultRejected)
		return &TransitionError{Current: from, Attempted: target}
	}

	c.logger.Debug("transitioning", "from", from, "to", target)
	c.state = target
	c.replaceTask(t)
	if target == StateInitial {
		c.startOver()
	}
	c.observe(from, target, ResultApplied)
	return nil
}

// ForceTransition moves to target regardless of the current state, cancelling
// any pending task without waiting for it. Used when a new sticker pre-empts
// whatever the user was doing.
func (c *Conversation) ForceTransition(target State, t *task.Task) {
	from := c.state
	c.logger.Debug("forcing transition", "from", from, "to", target)

	c.state = target
	c.replaceTask(t)
	c.clearPast(target)
	c.startOver()
	c.observe(from, target, ResultForced)
}

type rollbackOptions struct {
	target *State
	task   *task.Task
}

// RollbackOption configures RollbackState.
type RollbackOption func(*rollbackOptions)

// To rolls back to exactly s instead of one step.
func To(s State) RollbackOption {
	return func(o *rollbackOptions) {
		o.target = &s
	}
}

// WithTask attaches t after rolling back. It requires To.
func WithTask(t *task.Task) RollbackOption {
	return func(o *rollbackOptions) {
		o.task = t
	}
}

// RollbackState undoes progress. Without To it cancels the pending task and
// moves one step back, staying put at StateInitial. With To it moves to that
// state and attaches the WithTask task, if any. Step data owned by states
// after the target is cleared either way.
func (c *Conversation) RollbackState(opts ...RollbackOption) error {
	var o rollbackOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.task != nil && o.target == nil {
		return fmt.Errorf("%w: a rollback task needs an explicit target state", ErrInvalidArgument)
	}

	from := c.state
	target := from.Previous()
	if o.target != nil {
		if !o.target.Valid() {
			return fmt.Errorf("%w: unknown target %s", ErrInvalidArgument, *o.target)
		}
		target = *o.target
	}

	c.logger.Debug("rolling back", "from", from, "to", target)
	c.replaceTask(o.task)
	c.state = target
	c.clearPast(target)
	if target == StateInitial && from != StateInitial {
		c.generation++
	}
	c.observe(from, target, ResultRolledBack)
	return nil
}

// Reset returns to StateInitial, cancelling the pending task and clearing all
// step data.
func (c *Conversation) Reset() {
	from := c.state
	c.logger.Debug("resetting", "from", from)

	c.state = StateInitial
	c.replaceTask(nil)
	c.startOver()
	c.observe(from, StateInitial, ResultReset)
}

// AwaitTaskResult waits up to timeout for the attached task. A timeout is
// reported as OutcomeTimedOut, distinct from a task that resolved to false.
func (c *Conversation) AwaitTaskResult(timeout time.Duration) (Outcome, error) {
	t := c.pending.Load()
	if t == nil {
		return OutcomeUnknown, ErrNoTask
	}

	outcome := Await(t, timeout)
	if outcome == OutcomeTimedOut {
		c.logger.Debug("task timed out", "task", t.Name(), "timeout", timeout)
	}
	return outcome, nil
}

// Await waits up to timeout for t. A handler that attached t awaits it through
// here so that a task attached by a later event is never mistaken for its own.
// A task cancelled before finishing is rejected without waiting.
func Await(t *task.Task, timeout time.Duration) Outcome {
	if t.Cancelled() && !t.Done() {
		return OutcomeRejected
	}
	ok, err := t.Result(timeout)
	switch {
	case err != nil:
		return OutcomeTimedOut
	case ok:
		return OutcomeAccepted
	default:
		return OutcomeRejected
	}
}

// replaceTask installs t and cancels whatever it displaced.
func (c *Conversation) replaceTask(t *task.Task) {
	if old := c.pending.Swap(t); old != nil && old != t {
		old.Cancel()
	}
}

// clearPast drops step data belonging to states after target.
func (c *Conversation) clearPast(target State) {
	if target < StateItemReceived {
		c.item = nil
	}
	if target < StateLabelling {
		c.labels = nil
	}
}

func (c *Conversation) startOver() {
	if c.state == StateInitial {
		c.item = nil
		c.labels = nil
	}
	c.generation++
}

func (c *Conversation) observe(from, to State, result string) {
	if c.observer != nil {
		c.observer.ObserveTransition(from, to, result)
	}
}
