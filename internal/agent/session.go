package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strands-agents/sdk-go/internal/storage"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ErrSessionNotFound is returned when no snapshot is stored under an ID.
var ErrSessionNotFound = errors.New("session not found")

const sessionCollection = "session"

// SessionStore persists agent snapshots as JSON documents.
type SessionStore struct {
	storage *storage.Storage
	now     func() time.Time
}

// NewSessionStore creates a session store over s.
func NewSessionStore(s *storage.Storage) *SessionStore {
	return &SessionStore{storage: s, now: time.Now}
}

// Save writes snap, keeping the creation time of an existing snapshot.
func (s *SessionStore) Save(ctx context.Context, snap types.SessionSnapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("session snapshot has no ID")
	}

	now := s.now().UnixMilli()
	var existing types.SessionSnapshot
	switch err := s.storage.Get(ctx, []string{sessionCollection, snap.ID}, &existing); {
	case err == nil && existing.Time.Created != 0:
		snap.Time.Created = existing.Time.Created
	case err == nil, errors.Is(err, storage.ErrNotFound):
		if snap.Time.Created == 0 {
			snap.Time.Created = now
		}
	default:
		return err
	}
	snap.Time.Updated = now

	if snap.Messages == nil {
		snap.Messages = []types.Message{}
	}
	return s.storage.Put(ctx, []string{sessionCollection, snap.ID}, snap)
}

// Load reads the snapshot stored under id.
func (s *SessionStore) Load(ctx context.Context, id string) (types.SessionSnapshot, error) {
	var snap types.SessionSnapshot
	err := s.storage.Get(ctx, []string{sessionCollection, id}, &snap)
	if errors.Is(err, storage.ErrNotFound) {
		return snap, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return snap, err
}

// List returns the stored session IDs in order.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx, []string{sessionCollection})
}

// Delete removes the snapshot stored under id.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.storage.Delete(ctx, []string{sessionCollection, id})
}
