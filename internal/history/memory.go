package history

import (
	"context"
	"sync"

	"github.com/aerodesk-ai/aerodesk/types"
)

// MemoryStore is an in-process Store for single-instance deployments
// and tests.
type MemoryStore struct {
	maxMessages int

	mu       sync.RWMutex
	sessions map[string][]types.Message
}

// NewMemoryStore creates an in-memory history store keeping at most
// maxMessages per session.
func NewMemoryStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &MemoryStore{
		maxMessages: maxMessages,
		sessions:    make(map[string][]types.Message),
	}
}

// Append adds messages and trims the session to the retention cap.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, messages ...types.Message) error {
	if sessionID == "" || len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.sessions[sessionID], messages...)
	if len(msgs) > s.maxMessages {
		msgs = msgs[len(msgs)-s.maxMessages:]
	}
	s.sessions[sessionID] = msgs
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	if sessionID == "" || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.sessions[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Clear removes the session's history.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
