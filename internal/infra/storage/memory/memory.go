package memory

import (
	"context"
	"sync"

	"github.com/vietddude/movement-kit/internal/infra/storage"
)

// Store is an in-process KV store.
type Store struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

var _ storage.KV = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
