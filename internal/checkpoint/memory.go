package checkpoint

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, sessionToken string) ([]byte, error) {
	if err := validateToken(sessionToken); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("memory store is closed")
	}
	data, ok := s.data[sessionToken]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionToken string, data []byte) error {
	if err := validateToken(sessionToken); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	s.data[sessionToken] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	delete(s.data, sessionToken)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
