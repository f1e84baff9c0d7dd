// ABOUTME: Process-wide map from user ID to that user's Conversation
// ABOUTME: One coarse mutex guards the map only; conversations carry their own locks

package conversation

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry hands out exactly one Conversation per user.
type Registry struct {
	mu            sync.Mutex
	conversations map[int64]*Conversation
	logger        *slog.Logger
	observer      Observer
}

// NewRegistry creates an empty registry. Pass nil logger for default; observer may be nil.
func NewRegistry(logger *slog.Logger, observer Observer) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conversations: make(map[int64]*Conversation),
		logger:        logger.With("component", "conversation"),
		observer:      observer,
	}
}

// Get returns the user's conversation, or nil if they never started one.
func (r *Registry) Get(actorID int64) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversations[actorID]
}

// GetOrCreate returns the user's conversation, creating it with chatID as the
// reply target if needed. chatID is required.
func (r *Registry) GetOrCreate(actorID, chatID int64) (*Conversation, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("%w: chat ID is required to create a conversation", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conversations[actorID]; ok {
		return c, nil
	}

	c := newConversation(actorID, chatID, r.logger, r.observer)
	r.conversations[actorID] = c
	r.logger.Debug("conversation created", "user_id", actorID, "chat_id", chatID)
	return c, nil
}

// Len returns the number of conversations held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations)
}
