// Package task runs background checks on a bounded pool and exposes their
// results through cancellable handles.
//
// # Tasks
//
// A Task wraps a Func returning (bool, error). Callers can:
//
//   - Cancel(): best effort; a task still waiting for a worker slot never runs
//   - Done(): report completion without blocking
//   - Wait(ctx): block until completion or ctx ends
//   - Result(timeout): the boolean value, or ErrTimeout
//
// Errors and panics raised inside a Func never escape: the task resolves to
// false and the error is available from Err.
//
// # Pool
//
//	pool := task.NewPool(cfg.Workers.MaxWorkers, logger)
//	defer pool.Close()
//
//	t := pool.Submit("sticker_is_new", func(ctx context.Context) (bool, error) {
//	    return store.StickerIsNew(ctx, userID, uniqueID)
//	})
//	ok, err := t.Result(3 * time.Second)
package task
