// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists users, stickers, labels and their associations with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database is per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			chat_id INTEGER NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			username TEXT UNIQUE,
			language_code TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS stickers (
			unique_id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			set_name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS associations (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			sticker_id TEXT NOT NULL,
			label_id TEXT NOT NULL,
			uses INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (sticker_id) REFERENCES stickers(unique_id),
			FOREIGN KEY (label_id) REFERENCES labels(id),
			UNIQUE (user_id, sticker_id, label_id)
		);

		CREATE INDEX IF NOT EXISTS idx_associations_user
			ON associations(user_id);

		CREATE INDEX IF NOT EXISTS idx_associations_user_sticker
			ON associations(user_id, sticker_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user.
// Returns ErrDuplicateUser if the user already exists.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO users (id, chat_id, first_name, last_name, username, language_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.ChatID,
		user.FirstName,
		user.LastName,
		nullString(user.Username),
		user.LanguageCode,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "user_id", user.ID)
	return nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed")
}

// GetUser retrieves a user by Telegram ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, chat_id, first_name, last_name, username, language_code, created_at
		FROM users
		WHERE id = ?
	`

	var user User
	var username sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.ChatID,
		&user.FirstName,
		&user.LastName,
		&username,
		&user.LanguageCode,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.Username = username.String
	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// StickerIsNew reports whether the user has no associations for the sticker.
func (s *SQLiteStore) StickerIsNew(ctx context.Context, userID int64, uniqueID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM associations WHERE user_id = ? AND sticker_id = ?`,
		userID, uniqueID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting associations: %w", err)
	}
	return count == 0, nil
}

// AddStickerLabels stores the sticker, any new labels and the associations
// between them in one transaction.
func (s *SQLiteStore) AddStickerLabels(ctx context.Context, userID int64, sticker Sticker, labels []string) error {
	if sticker.UniqueID == "" {
		return fmt.Errorf("sticker unique ID is required")
	}
	if len(labels) == 0 {
		return fmt.Errorf("at least one label is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stickers (unique_id, file_id, set_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET file_id = excluded.file_id, set_name = excluded.set_name
	`, sticker.UniqueID, sticker.FileID, sticker.SetName, now)
	if err != nil {
		return fmt.Errorf("upserting sticker: %w", err)
	}
	for _, label := range labels {
		labelID, err := getOrCreateLabel(ctx, tx, label)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO associations (id, user_id, sticker_id, label_id, uses, created_at)
			VALUES (?, ?, ?, ?, 0, ?)
		`, uuid.New().String(), userID, sticker.UniqueID, labelID, now)
		if err != nil {
			return fmt.Errorf("inserting association for label %q: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("added sticker labels", "user_id", userID, "sticker", sticker.UniqueID, "labels", len(labels))
	return nil
}

func getOrCreateLabel(ctx context.Context, tx *sql.Tx, text string) (string, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO labels (id, text) VALUES (?, ?)`,
		uuid.New().String(), text,
	)
	if err != nil {
		return "", fmt.Errorf("inserting label %q: %w", text, err)
	}

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM labels WHERE text = ?`, text).Scan(&id); err != nil {
		return "", fmt.Errorf("querying label %q: %w", text, err)
	}
	return id, nil
}

// HasAssociations reports whether the user has labelled any sticker.
func (s *SQLiteStore) HasAssociations(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM associations WHERE user_id = ?)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking associations: %w", err)
	}
	return exists, nil
}

// SearchStickers returns distinct stickers matching any label, most used first.
func (s *SQLiteStore) SearchStickers(ctx context.Context, userID int64, labels []string, limit int) ([]Sticker, error) {
	if limit <= 0 {
		limit = 50
	}

	args := []any{userID}
	var labelFilter string
	if len(labels) > 0 {
		labelFilter = "AND l.text IN (" + placeholders(len(labels)) + ")"
		for _, label := range labels {
			args = append(args, label)
		}
	}
	args = append(args, limit)

	query := `
		SELECT s.unique_id, s.file_id, s.set_name
		FROM associations a
		JOIN stickers s ON s.unique_id = a.sticker_id
		JOIN labels l ON l.id = a.label_id
		WHERE a.user_id = ? ` + labelFilter + `
		GROUP BY s.unique_id
		ORDER BY SUM(a.uses) DESC, MIN(a.created_at) ASC, s.unique_id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching stickers: %w", err)
	}
	defer rows.Close()

	var stickers []Sticker
	for rows.Next() {
		var st Sticker
		if err := rows.Scan(&st.UniqueID, &st.FileID, &st.SetName); err != nil {
			return nil, fmt.Errorf("scanning sticker: %w", err)
		}
		stickers = append(stickers, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stickers: %w", err)
	}

	return stickers, nil
}

// IncrementUsage bumps uses on the user's associations for the matched labels.
func (s *SQLiteStore) IncrementUsage(ctx context.Context, userID int64, uniqueID string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}

	args := []any{userID, uniqueID}
	for _, label := range labels {
		args = append(args, label)
	}

	query := `
		UPDATE associations SET uses = uses + 1
		WHERE user_id = ? AND sticker_id = ?
		AND label_id IN (SELECT id FROM labels WHERE text IN (` + placeholders(len(labels)) + `))
	`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}

	n, _ := result.RowsAffected()
	s.logger.Debug("incremented usage", "user_id", userID, "sticker", uniqueID, "associations", n)
	return nil
}

// UsageCount returns the use count for a sticker and label.
func (s *SQLiteStore) UsageCount(ctx context.Context, userID int64, uniqueID, label string) (int, error) {
	query := `
		SELECT COALESCE(SUM(a.uses), 0)
		FROM associations a
		JOIN labels l ON l.id = a.label_id
		WHERE a.sticker_id = ? AND l.text = ?
	`
	args := []any{uniqueID, label}
	if userID != 0 {
		query += ` AND a.user_id = ?`
		args = append(args, userID)
	}

	var uses int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&uses); err != nil {
		return 0, fmt.Errorf("querying usage count: %w", err)
	}
	return uses, nil
}

// nullString returns nil for empty strings so optional UNIQUE columns stay NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// placeholders returns n comma-separated SQL parameter markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Compile-time check
var _ Store = (*SQLiteStore)(nil)
