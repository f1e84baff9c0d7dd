// Package store provides persistent storage for sticker labels using SQLite.
//
// # Data Models
//
//   - User: a Telegram user who has started the bot, with their private chat
//   - Sticker: keyed by Telegram's file_unique_id; the file_id is refreshed on
//     every save because Telegram may rotate it
//   - Label: a word, shared by all users
//   - Association: user + sticker + label, with a use count bumped whenever the
//     user picks the sticker from an inline query containing the label
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// AddStickerLabels runs in a single transaction, so a sticker is either fully
// labelled or not stored at all.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateUser: user already exists
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests. FailOn injects an error into a single
// method. Use NewSQLiteStore with a path under t.TempDir() for integration tests.
package store
