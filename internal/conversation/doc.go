// Package conversation implements the per-user state machine that drives
// sticker labelling.
//
// # States
//
// A conversation moves through four states and wraps around:
//
//	INITIAL -> ITEM_RECEIVED -> LABELLING -> CONFIRMING -> INITIAL
//
// Allowed ordered transitions:
//
//   - ITEM_RECEIVED from INITIAL
//   - LABELLING from ITEM_RECEIVED or LABELLING (labels may be sent again)
//   - CONFIRMING from LABELLING
//   - INITIAL from anywhere
//
// # Background Tasks
//
// Each transition may attach a *task.Task whose result decides whether the
// step sticks. At most one task is attached; attaching another cancels the
// previous handle. AttemptTransition waits for a running task before moving
// on, while ForceTransition cancels it and moves immediately. This is how a
// newly sent sticker pre-empts an unfinished conversation.
//
// AwaitTaskResult returns one of three outcomes: accepted, rejected or timed
// out. Callers usually roll back on anything but accepted.
//
// # Rollback
//
//	c.RollbackState()                          // one step back
//	c.RollbackState(conversation.To(s))        // exactly to s
//	c.RollbackState(conversation.To(s), conversation.WithTask(t))
//
// Rolling back before ITEM_RECEIVED drops the sticker; before LABELLING drops
// the labels.
//
// # Locking
//
// The Registry mutex protects only its map. Every read-modify-write on a
// Conversation happens under that conversation's own Lock:
//
//	c, err := registry.GetOrCreate(userID, chatID)
//	c.Lock()
//	err = c.AttemptTransition(ctx, conversation.StateLabelling, nil)
//	c.Unlock()
//
// Conversations live in memory only and are never evicted.
package conversation
