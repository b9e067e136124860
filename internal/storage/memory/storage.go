package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mcoot/gamehub/internal/storage"
)

// Storage is an in-memory document store. Documents are kept encoded so
// callers never share state with the store.
type Storage struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{docs: make(map[string][]byte)}
}

// Ensure Storage implements the interface
var _ storage.DocumentStore = (*Storage)(nil)

func (s *Storage) Load(ctx context.Context, name string, v any) error {
	s.mu.RLock()
	data, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (s *Storage) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[name] = data
	s.mu.Unlock()
	return nil
}

func (s *Storage) Close() error { return nil }

// Raw returns the stored encoding of a document, for tests
func (s *Storage) Raw(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[name]
	return data, ok
}
