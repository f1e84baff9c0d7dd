// ABOUTME: Cancellable, awaitable handle for one unit of background work
// ABOUTME: Completion is signalled by closing a channel so waiters never poll

package task

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by Result when the task did not finish in time.
var ErrTimeout = errors.New("task result timed out")

// ErrCancelled is recorded as the task error when it was cancelled before running.
var ErrCancelled = errors.New("task cancelled")

// ErrPoolClosed is recorded as the task error when it was submitted to a closed pool.
var ErrPoolClosed = errors.New("pool closed")

// Func is the work a Task runs. A non-nil error always yields a false result.
type Func func(ctx context.Context) (bool, error)

// Task is a handle on background work with a deferred boolean result.
// value and err are written once before done is closed.
type Task struct {
	name      string
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	value     bool
	err       error
}

func newTask(name string) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Resolved returns a task that has already completed with the given value.
func Resolved(name string, value bool) *Task {
	t := newTask(name)
	t.value = value
	t.cancel()
	close(t.done)
	return t
}

// Name returns the label the task was submitted with.
func (t *Task) Name() string {
	return t.name
}

// Cancel signals the task to stop. A queued task will not start; a running
// one only sees its context cancelled. It is safe to call multiple times.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Done reports whether the task has finished, successfully or not.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result waits up to timeout for the task's value. Failures inside the task
// surface as false here and through Err.
func (t *Task) Result(timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.value, nil
	case <-timer.C:
		return false, ErrTimeout
	}
}

// Value returns the task's result once it has finished, and false before.
func (t *Task) Value() bool {
	select {
	case <-t.done:
		return t.value
	default:
		return false
	}
}

// Err returns the error the task finished with, or nil while it is still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
