package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStoreDown       = errors.New("session store unavailable")
)

// Store keeps the server side half of a session: session id to user id.
type Store interface {
	Save(ctx context.Context, sid string, userID uint, ttl time.Duration) error
	Load(ctx context.Context, sid string) (uint, error)
	Delete(ctx context.Context, sid string) error
	Health(ctx context.Context) error
}

type memoryEntry struct {
	userID    uint
	expiresAt time.Time
}

// MemoryStore is a process local Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, sid string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}

	s.sessions[sid] = memoryEntry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sid string) (uint, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sid]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return 0, ErrSessionNotFound
	}
	return entry.userID, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return nil
}

func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend":  "memory",
		"sessions": s.Len(),
	}
}
