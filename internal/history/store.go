// Package history holds the ordered message store replayed into the model on every cycle.
//
// Only the conversation manager and the event loop mutate a Store. Readers (hooks, the HTTP
// layer) get deep copies.
package history

import (
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// ErrEmpty is returned by operations that need at least one message.
var ErrEmpty = errors.New("history is empty")

// Store is an ordered sequence of messages.
type Store struct {
	mu       sync.RWMutex
	messages []types.Message
}

// New creates a store seeded with copies of msgs.
func New(msgs ...types.Message) *Store {
	return &Store{messages: types.CloneMessages(msgs)}
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Messages returns a deep copy of the history.
func (s *Store) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.CloneMessages(s.messages)
}

// Last returns a copy of the most recent message.
func (s *Store) Last() (types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return types.Message{}, ErrEmpty
	}
	return s.messages[len(s.messages)-1].Clone(), nil
}

// Append adds a copy of msg, assigning an ID if it has none, and returns the stored copy.
func (s *Store) Append(msg types.Message) types.Message {
	stored := msg.Clone()
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}

	s.mu.Lock()
	s.messages = append(s.messages, stored)
	s.mu.Unlock()

	return stored.Clone()
}

// Replace swaps the whole history for copies of msgs.
func (s *Store) Replace(msgs []types.Message) {
	cp := types.CloneMessages(msgs)
	s.mu.Lock()
	s.messages = cp
	s.mu.Unlock()
}

// Update applies fn to the live history under the write lock. fn may return a new slice.
func (s *Store) Update(fn func(msgs []types.Message) []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = fn(s.messages)
}

// Snapshot captures the current history for a later Restore.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{messages: s.Messages()}
}

// Restore resets the history to a previously captured snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.Replace(snap.messages)
}

// Snapshot is an immutable copy of a store's contents.
type Snapshot struct {
	messages []types.Message
}

// Len returns the number of messages captured.
func (s Snapshot) Len() int { return len(s.messages) }
