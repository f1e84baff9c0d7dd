// ABOUTME: Bounded worker pool that runs Funcs and hands back Task handles
// ABOUTME: Concurrency is capped with a weighted semaphore; panics become failed results

package task

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs submitted functions with at most size of them in flight.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewPool creates a pool allowing size concurrent functions. Pass nil logger for default.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: logger.With("component", "pool"),
	}
}

// Size returns the maximum number of functions run at once.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues fn and returns its handle immediately.
func (p *Pool) Submit(name string, fn Func) *Task {
	t := newTask(name)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.err = ErrPoolClosed
		t.cancel()
		close(t.done)
		return t
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(t, fn)
	return t
}

func (p *Pool) run(t *Task, fn Func) {
	defer p.wg.Done()
	defer close(t.done)
	defer t.cancel()

	if err := p.sem.Acquire(t.ctx, 1); err != nil {
		t.err = ErrCancelled
		return
	}
	defer p.sem.Release(1)

	// Acquire may succeed on an already cancelled context.
	if t.ctx.Err() != nil {
		t.err = ErrCancelled
		return
	}

	start := time.Now()
	t.value, t.err = p.call(t, fn)
	if t.err != nil {
		p.logger.Error("task failed",
			"task", t.name,
			"error", t.err,
			"duration", time.Since(start))
		return
	}
	p.logger.Debug("task finished",
		"task", t.name,
		"result", t.value,
		"duration", time.Since(start))
}

// call runs fn, converting a panic into an error.
func (p *Pool) call(t *Task, fn Func) (value bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = false
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()

	value, err = fn(t.ctx)
	if err != nil {
		return false, err
	}
	return value, nil
}

// Close stops accepting work and waits for queued and running tasks to finish.
// It is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
