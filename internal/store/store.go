// ABOUTME: Store interface and data types for sticker label persistence
// ABOUTME: Defines User and Sticker structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when trying to create a user that already exists
var ErrDuplicateUser = errors.New("user already exists")

// User is a Telegram user who has started the bot
type User struct {
	ID           int64
	ChatID       int64 // private chat with the bot
	FirstName    string
	LastName     string
	Username     string // optional; unique when set
	LanguageCode string
	CreatedAt    time.Time
}

// Sticker identifies a Telegram sticker.
// UniqueID is stable across bots and is the primary key; FileID is what
// Telegram needs to resend the sticker and may change over time.
type Sticker struct {
	UniqueID string
	FileID   string
	SetName  string
}

// Store defines the interface for sticker label persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)

	// StickerIsNew reports whether the user has not yet labelled the sticker.
	StickerIsNew(ctx context.Context, userID int64, uniqueID string) (bool, error)

	// AddStickerLabels associates every label with the sticker for the user
	// in a single transaction. Existing associations are kept as they are.
	AddStickerLabels(ctx context.Context, userID int64, sticker Sticker, labels []string) error

	// HasAssociations reports whether the user has labelled any sticker.
	HasAssociations(ctx context.Context, userID int64) (bool, error)

	// SearchStickers returns distinct stickers the user has tagged with any of
	// the labels, most used first. No labels matches every sticker of the user.
	SearchStickers(ctx context.Context, userID int64, labels []string, limit int) ([]Sticker, error)

	// IncrementUsage bumps the use count of the user's associations between
	// the sticker and the given labels. Unmatched labels are ignored.
	IncrementUsage(ctx context.Context, userID int64, uniqueID string, labels []string) error

	// UsageCount returns how often the sticker was chosen for the label.
	// A userID of 0 sums over all users. Missing associations count as 0.
	UsageCount(ctx context.Context, userID int64, uniqueID, label string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
