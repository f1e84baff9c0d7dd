// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures per operation

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type associationKey struct {
	userID   int64
	uniqueID string
	label    string
}

type association struct {
	uses int
	seq  int
}

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu           sync.RWMutex
	users        map[int64]*User
	stickers     map[string]Sticker
	associations map[associationKey]*association
	seq          int
	failures     map[string]error // keyed by method name
	closed       bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:        make(map[int64]*User),
		stickers:     make(map[string]Sticker),
		associations: make(map[associationKey]*association),
		failures:     make(map[string]error),
	}
}

// FailOn makes every call to the named method return err.
// A nil err clears the failure.
func (m *MockStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// failure must be called with mu held.
func (m *MockStore) failure(method string) error {
	return m.failures[method]
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("CreateUser"); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; ok {
		return ErrDuplicateUser
	}
	if user.Username != "" {
		for _, existing := range m.users {
			if existing.Username == user.Username {
				return ErrDuplicateUser
			}
		}
	}

	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	result := *u
	return &result, nil
}

// StickerIsNew reports whether the user has no associations for the sticker.
func (m *MockStore) StickerIsNew(ctx context.Context, userID int64, uniqueID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("StickerIsNew"); err != nil {
		return false, err
	}
	for key := range m.associations {
		if key.userID == userID && key.uniqueID == uniqueID {
			return false, nil
		}
	}
	return true, nil
}

// AddStickerLabels stores the sticker and its associations.
func (m *MockStore) AddStickerLabels(ctx context.Context, userID int64, sticker Sticker, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("AddStickerLabels"); err != nil {
		return err
	}
	if sticker.UniqueID == "" {
		return fmt.Errorf("sticker unique ID is required")
	}
	if len(labels) == 0 {
		return fmt.Errorf("at least one label is required")
	}
	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("inserting association: user %d: %w", userID, ErrNotFound)
	}

	m.stickers[sticker.UniqueID] = sticker
	for _, label := range labels {
		key := associationKey{userID: userID, uniqueID: sticker.UniqueID, label: label}
		if _, ok := m.associations[key]; ok {
			continue
		}
		m.seq++
		m.associations[key] = &association{seq: m.seq}
	}
	return nil
}

// HasAssociations reports whether the user has labelled any sticker.
func (m *MockStore) HasAssociations(ctx context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("HasAssociations"); err != nil {
		return false, err
	}
	for key := range m.associations {
		if key.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

// SearchStickers returns distinct stickers matching any label, most used first.
func (m *MockStore) SearchStickers(ctx context.Context, userID int64, labels []string, limit int) ([]Sticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("SearchStickers"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	wanted := make(map[string]bool, len(labels))
	for _, label := range labels {
		wanted[label] = true
	}

	type hit struct {
		uniqueID string
		uses     int
		firstSeq int
	}
	hits := make(map[string]*hit)
	for key, a := range m.associations {
		if key.userID != userID {
			continue
		}
		if len(wanted) > 0 && !wanted[key.label] {
			continue
		}
		h, ok := hits[key.uniqueID]
		if !ok {
			h = &hit{uniqueID: key.uniqueID, firstSeq: a.seq}
			hits[key.uniqueID] = h
		}
		h.uses += a.uses
		if a.seq < h.firstSeq {
			h.firstSeq = a.seq
		}
	}

	ordered := make([]*hit, 0, len(hits))
	for _, h := range hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].uses != ordered[j].uses {
			return ordered[i].uses > ordered[j].uses
		}
		if ordered[i].firstSeq != ordered[j].firstSeq {
			return ordered[i].firstSeq < ordered[j].firstSeq
		}
		return ordered[i].uniqueID < ordered[j].uniqueID
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	var stickers []Sticker
	for _, h := range ordered {
		stickers = append(stickers, m.stickers[h.uniqueID])
	}
	return stickers, nil
}

// IncrementUsage bumps uses on the matched associations.
func (m *MockStore) IncrementUsage(ctx context.Context, userID int64, uniqueID string, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("IncrementUsage"); err != nil {
		return err
	}
	for _, label := range labels {
		if a, ok := m.associations[associationKey{userID: userID, uniqueID: uniqueID, label: label}]; ok {
			a.uses++
		}
	}
	return nil
}

// UsageCount returns the use count for a sticker and label.
func (m *MockStore) UsageCount(ctx context.Context, userID int64, uniqueID, label string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("UsageCount"); err != nil {
		return 0, err
	}
	uses := 0
	for key, a := range m.associations {
		if key.uniqueID != uniqueID || key.label != label {
			continue
		}
		if userID != 0 && key.userID != userID {
			continue
		}
		uses += a.uses
	}
	return uses, nil
}

// Ping reports an error once the store is closed.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("Ping"); err != nil {
		return err
	}
	if m.closed {
		return fmt.Errorf("store closed")
	}
	return nil
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Compile-time check
var _ Store = (*MockStore)(nil)
