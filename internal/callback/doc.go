// Package callback encodes inline keyboard callback data.
//
// A token is three fields joined by "+":
//
//	confirm+LABELLING+AgADBQADwDZPEw
//
// The action comes first, then the canonical conversation state name, then the
// item ID (a sticker's file_unique_id). Telegram caps callback data at 64 bytes,
// which is why the short unique ID is used rather than the file ID.
package callback
