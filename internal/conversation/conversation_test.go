// ABOUTME: Tests for the conversation state machine
// ABOUTME: Covers transition order, forcing, blocking on tasks, rollback and awaiting results

package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joey-c/stickertaggerbot/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingObserver captures transitions for assertions.
type recordingObserver struct {
	mu      sync.Mutex
	records []string
}

func (o *recordingObserver) ObserveTransition(from, to State, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, from.String()+">"+to.String()+":"+result)
}

func (o *recordingObserver) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.records...)
}

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	return newConversation(42, 4242, testLogger(), nil)
}

func newTestPool(t *testing.T) *task.Pool {
	t.Helper()
	pool := task.NewPool(4, testLogger())
	t.Cleanup(pool.Close)
	return pool
}

// blockingTask submits a task that resolves to value once release is closed.
func blockingTask(pool *task.Pool, value bool) (*task.Task, chan struct{}) {
	release := make(chan struct{})
	tk := pool.Submit("blocking", func(ctx context.Context) (bool, error) {
		select {
		case <-release:
			return value, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
	return tk, release
}

func TestState_Names(t *testing.T) {
	names := map[State]string{
		StateInitial:      "INITIAL",
		StateItemReceived: "ITEM_RECEIVED",
		StateLabelling:    "LABELLING",
		StateConfirming:   "CONFIRMING",
	}
	for state, name := range names {
		assert.Equal(t, name, state.String())
		parsed, err := ParseState(name)
		require.NoError(t, err)
		assert.Equal(t, state, parsed)
	}

	_, err := ParseState("LABEL")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.False(t, State(9).Valid())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestState_Previous(t *testing.T) {
	assert.Equal(t, StateInitial, StateInitial.Previous())
	assert.Equal(t, StateInitial, StateItemReceived.Previous())
	assert.Equal(t, StateItemReceived, StateLabelling.Previous())
	assert.Equal(t, StateLabelling, StateConfirming.Previous())
}

func TestAttemptTransition_Table(t *testing.T) {
	all := []State{StateInitial, StateItemReceived, StateLabelling, StateConfirming}
	allowed := map[[2]State]bool{
		{StateInitial, StateItemReceived}:   true,
		{StateItemReceived, StateLabelling}: true,
		{StateLabelling, StateLabelling}:    true,
		{StateLabelling, StateConfirming}:   true,
		{StateInitial, StateInitial}:        true,
		{StateItemReceived, StateInitial}:   true,
		{StateLabelling, StateInitial}:      true,
		{StateConfirming, StateInitial}:     true,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(from.String()+"_to_"+to.String(), func(t *testing.T) {
				c := newTestConversation(t)
				c.state = from
				pending := task.Resolved("previous", true)
				c.pending.Store(pending)

				err := c.AttemptTransition(context.Background(), to, nil)
				if allowed[[2]State{from, to}] {
					require.NoError(t, err)
					assert.Equal(t, to, c.State())
					assert.Nil(t, c.PendingTask())
					return
				}

				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTransition)
				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, from, te.Current)
				assert.Equal(t, to, te.Attempted)
				assert.Equal(t, from, c.State(), "state must be untouched")
				assert.Same(t, pending, c.PendingTask(), "task must be untouched")
			})
		}
	}
}

func TestAttemptTransition_FullCycle(t *testing.T) {
	c := newTestConversation(t)
	ctx := context.Background()

	require.NoError(t, c.AttemptTransition(ctx, StateItemReceived, nil))
	c.SetItem(&Sticker{UniqueID: "sticker_42"})
	require.NoError(t, c.AttemptTransition(ctx, StateLabelling, nil))
	c.SetLabels([]string{"cat", "happy"})
	require.NoError(t, c.AttemptTransition(ctx, StateLabelling, nil))
	require.NoError(t, c.AttemptTransition(ctx, StateConfirming, nil))
	require.NoError(t, c.AttemptTransition(ctx, StateInitial, nil))

	assert.Equal(t, StateInitial, c.State())
	assert.Nil(t, c.Item(), "completing the cycle drops the sticker")
	assert.Empty(t, c.Labels())
}

func TestAttemptTransition_UnknownTarget(t *testing.T) {
	c := newTestConversation(t)
	err := c.AttemptTransition(context.Background(), State(7), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, StateInitial, c.State())
}

func TestAttemptTransition_BlocksOnPendingTask(t *testing.T) {
	c := newTestConversation(t)
	pool := newTestPool(t)

	t1, release := blockingTask(pool, true)
	c.Lock()
	require.NoError(t, c.AttemptTransition(context.Background(), StateItemReceived, t1))
	c.Unlock()
	assert.Equal(t, StateItemReceived, c.State())

	done := make(chan error, 1)
	go func() {
		c.Lock()
		defer c.Unlock()
		done <- c.AttemptTransition(context.Background(), StateLabelling, nil)
	}()

	select {
	case err := <-done:
		t.Fatalf("transition returned before the pending task finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("transition did not proceed after the task finished")
	}

	c.Lock()
	defer c.Unlock()
	assert.Equal(t, StateLabelling, c.State())
	assert.True(t, t1.Done())
}

func TestAttemptTransition_WaitBoundedByContext(t *testing.T) {
	c := newTestConversation(t)
	pool := newTestPool(t)

	t1, release := blockingTask(pool, true)
	defer close(release)
	require.NoError(t, c.AttemptTransition(context.Background(), StateItemReceived, t1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.AttemptTransition(ctx, StateLabelling, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateItemReceived, c.State())
	assert.Same(t, t1, c.PendingTask())
	assert.False(t, t1.Cancelled())
}

func TestAttemptTransition_ReplacesTask(t *testing.T) {
	c := newTestConversation(t)
	first := task.Resolved("first", true)
	second := task.Resolved("second", true)

	require.NoError(t, c.AttemptTransition(context.Background(), StateItemReceived, first))
	require.NoError(t, c.AttemptTransition(context.Background(), StateLabelling, second))

	assert.Same(t, second, c.PendingTask())
	assert.True(t, first.Cancelled())
	assert.False(t, second.Cancelled())
}

func TestForceTransition_OverridesOrder(t *testing.T) {
	all := []State{StateInitial, StateItemReceived, StateLabelling, StateConfirming}
	pool := newTestPool(t)

	for _, from := range all {
		t.Run(from.String(), func(t *testing.T) {
			c := newTestConversation(t)
			c.state = from
			old, release := blockingTask(pool, true)
			defer close(release)
			c.pending.Store(old)
			gen := c.Generation()

			replacement := task.Resolved("new", true)
			c.ForceTransition(StateItemReceived, replacement)

			assert.Equal(t, StateItemReceived, c.State())
			assert.Same(t, replacement, c.PendingTask())
			assert.True(t, old.Cancelled(), "force must cancel the previous task")
			assert.NotEqual(t, gen, c.Generation())
		})
	}
}

func TestForceTransition_DropsLabels(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateLabelling
	c.SetItem(&Sticker{UniqueID: "old"})
	c.SetLabels([]string{"a"})

	c.ForceTransition(StateItemReceived, nil)

	assert.Empty(t, c.Labels())
	c.SetItem(&Sticker{UniqueID: "new"})
	assert.Equal(t, "new", c.Item().UniqueID)
}

func TestRollbackState_OneStep(t *testing.T) {
	cases := []struct {
		from State
		want State
	}{
		{StateInitial, StateInitial},
		{StateItemReceived, StateInitial},
		{StateLabelling, StateItemReceived},
		{StateConfirming, StateLabelling},
	}

	for _, tc := range cases {
		t.Run(tc.from.String(), func(t *testing.T) {
			c := newTestConversation(t)
			c.state = tc.from
			pending := task.Resolved("pending", true)
			c.pending.Store(pending)

			require.NoError(t, c.RollbackState())
			assert.Equal(t, tc.want, c.State())
			assert.Nil(t, c.PendingTask())
			assert.True(t, pending.Cancelled())
		})
	}
}

func TestRollbackState_ClearsLabels(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateLabelling
	c.SetItem(&Sticker{UniqueID: "sticker_42"})
	c.SetLabels([]string{"a", "b"})

	require.NoError(t, c.RollbackState())

	assert.Equal(t, StateItemReceived, c.State())
	assert.Empty(t, c.Labels())
	require.NotNil(t, c.Item(), "the sticker belongs to ITEM_RECEIVED and survives")
	assert.Equal(t, "sticker_42", c.Item().UniqueID)
}

func TestRollbackState_FromConfirmingKeepsLabels(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateConfirming
	c.SetItem(&Sticker{UniqueID: "s"})
	c.SetLabels([]string{"a"})

	require.NoError(t, c.RollbackState())

	assert.Equal(t, StateLabelling, c.State())
	assert.Equal(t, []string{"a"}, c.Labels())
}

func TestRollbackState_ToInitialClearsEverything(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateLabelling
	c.SetItem(&Sticker{UniqueID: "s"})
	c.SetLabels([]string{"a"})
	gen := c.Generation()

	require.NoError(t, c.RollbackState(To(StateInitial)))

	assert.Equal(t, StateInitial, c.State())
	assert.Nil(t, c.Item())
	assert.Empty(t, c.Labels())
	assert.NotEqual(t, gen, c.Generation())
}

func TestRollbackState_TaskWithoutTarget(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateLabelling
	c.SetLabels([]string{"a"})
	pending := task.Resolved("pending", true)
	c.pending.Store(pending)

	err := c.RollbackState(WithTask(task.Resolved("replacement", true)))

	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, StateLabelling, c.State())
	assert.Same(t, pending, c.PendingTask())
	assert.False(t, pending.Cancelled())
	assert.Equal(t, []string{"a"}, c.Labels())
}

func TestRollbackState_ExplicitWithTask(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateConfirming
	old := task.Resolved("old", true)
	c.pending.Store(old)

	replacement := task.Resolved("replacement", false)
	require.NoError(t, c.RollbackState(To(StateLabelling), WithTask(replacement)))

	assert.Equal(t, StateLabelling, c.State())
	assert.Same(t, replacement, c.PendingTask())
	assert.True(t, old.Cancelled())
}

func TestRollbackState_UnknownTarget(t *testing.T) {
	c := newTestConversation(t)
	err := c.RollbackState(To(State(-1)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReset(t *testing.T) {
	c := newTestConversation(t)
	c.state = StateConfirming
	c.SetItem(&Sticker{UniqueID: "s"})
	c.SetLabels([]string{"a"})
	pending := task.Resolved("pending", true)
	c.pending.Store(pending)
	gen := c.Generation()

	c.Reset()

	assert.Equal(t, StateInitial, c.State())
	assert.Nil(t, c.Item())
	assert.Empty(t, c.Labels())
	assert.Nil(t, c.PendingTask())
	assert.True(t, pending.Cancelled())
	assert.NotEqual(t, gen, c.Generation())
}

func TestAwaitTaskResult_NoTask(t *testing.T) {
	c := newTestConversation(t)
	outcome, err := c.AwaitTaskResult(time.Millisecond)
	assert.ErrorIs(t, err, ErrNoTask)
	assert.Equal(t, OutcomeUnknown, outcome)
}

func TestAwaitTaskResult_ThreeValued(t *testing.T) {
	pool := newTestPool(t)

	t.Run("accepted", func(t *testing.T) {
		c := newTestConversation(t)
		c.ForceTransition(StateItemReceived, task.Resolved("yes", true))
		outcome, err := c.AwaitTaskResult(time.Second)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, outcome)
	})

	t.Run("rejected", func(t *testing.T) {
		c := newTestConversation(t)
		c.ForceTransition(StateItemReceived, task.Resolved("no", false))
		outcome, err := c.AwaitTaskResult(time.Second)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)
	})

	t.Run("failed task counts as rejected", func(t *testing.T) {
		c := newTestConversation(t)
		failing := pool.Submit("failing", func(ctx context.Context) (bool, error) {
			return true, errors.New("constraint failed")
		})
		c.ForceTransition(StateItemReceived, failing)
		outcome, err := c.AwaitTaskResult(time.Second)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)
	})

	t.Run("timed out", func(t *testing.T) {
		c := newTestConversation(t)
		tk, release := blockingTask(pool, true)
		defer close(release)
		c.ForceTransition(StateItemReceived, tk)
		outcome, err := c.AwaitTaskResult(20 * time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, OutcomeTimedOut, outcome)
		assert.NotEqual(t, OutcomeRejected, outcome)
	})
}

func TestAwait_OwnHandle(t *testing.T) {
	c := newTestConversation(t)
	own := task.Resolved("own", true)
	c.ForceTransition(StateItemReceived, own)

	// A later event attaches something else; the first handler still reads its own result.
	c.ForceTransition(StateItemReceived, task.Resolved("later", false))

	assert.Equal(t, OutcomeAccepted, Await(own, time.Second))
	outcome, err := c.AwaitTaskResult(time.Second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
}

func TestAwait_SupersededDoesNotWait(t *testing.T) {
	c := newTestConversation(t)
	pool := newTestPool(t)

	// This check ignores cancellation and would hold Await for its full timeout.
	release := make(chan struct{})
	defer close(release)
	own := pool.Submit("stubborn", func(ctx context.Context) (bool, error) {
		<-release
		return true, nil
	})
	c.ForceTransition(StateItemReceived, own)
	c.ForceTransition(StateItemReceived, task.Resolved("later", true))
	require.True(t, own.Cancelled())

	start := time.Now()
	assert.Equal(t, OutcomeRejected, Await(own, 5*time.Second))
	assert.True(t, time.Since(start) < time.Second, "waited for a cancelled task")
}

func TestSinglePendingTask(t *testing.T) {
	c := newTestConversation(t)
	pool := newTestPool(t)

	var handles []*task.Task
	attach := func() *task.Task {
		tk, release := blockingTask(pool, true)
		t.Cleanup(func() { close(release) })
		handles = append(handles, tk)
		return tk
	}

	c.ForceTransition(StateItemReceived, attach())
	c.ForceTransition(StateItemReceived, attach())
	require.NoError(t, c.RollbackState(To(StateItemReceived), WithTask(attach())))
	c.ForceTransition(StateItemReceived, attach())

	live := 0
	for _, h := range handles {
		if !h.Cancelled() {
			live++
			assert.Same(t, h, c.PendingTask())
		}
	}
	assert.Equal(t, 1, live)

	require.NoError(t, c.RollbackState())
	for _, h := range handles {
		assert.True(t, h.Cancelled())
	}
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := newConversation(1, 1, testLogger(), obs)
	ctx := context.Background()

	require.NoError(t, c.AttemptTransition(ctx, StateItemReceived, nil))
	require.Error(t, c.AttemptTransition(ctx, StateConfirming, nil))
	c.ForceTransition(StateItemReceived, nil)
	require.NoError(t, c.RollbackState())
	c.Reset()

	assert.Equal(t, []string{
		"INITIAL>ITEM_RECEIVED:applied",
		"ITEM_RECEIVED>CONFIRMING:rejected",
		"ITEM_RECEIVED>ITEM_RECEIVED:forced",
		"ITEM_RECEIVED>INITIAL:rolled_back",
		"INITIAL>INITIAL:reset",
	}, obs.all())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "accepted", OutcomeAccepted.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "timed_out", OutcomeTimedOut.String())
	assert.Equal(t, "unknown", OutcomeUnknown.String())
}

func TestLabels_AreCopied(t *testing.T) {
	c := newTestConversation(t)
	in := []string{"a", "b"}
	c.SetLabels(in)
	in[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, c.Labels())

	out := c.Labels()
	out[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, c.Labels())
}
