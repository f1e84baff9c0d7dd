// Package dedupe remembers recently handled keys for a limited time.
//
// The dispatcher marks every Telegram update ID before handling it, so an
// update redelivered by long polling is dropped instead of driving a
// conversation twice.
package dedupe
