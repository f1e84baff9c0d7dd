// Package bot turns inbound updates into conversation steps and replies.
//
// A Dispatcher runs every update on its own goroutine. Handlers for the same
// user serialize on that user's Conversation lock and never hold it across a
// reply or while awaiting their own background task:
//
//	sticker        -> ITEM_RECEIVED, checks the sticker is new in the background
//	text           -> LABELLING, echoes the sticker with Confirm/Cancel buttons
//	Confirm button -> CONFIRMING, saves the labels, then back to INITIAL
//	Cancel button  -> ITEM_RECEIVED, asks for labels again
//	/cancel        -> INITIAL
//
// A handler that finds the conversation's generation changed after awaiting
// its task stays silent; whatever superseded it owns the reply.
//
// Inline queries search the user's labelled stickers, and the chosen result
// bumps the usage counts that order future searches.
package bot
