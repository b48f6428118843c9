package contest

import (
	"context"
	"sync"
)

// Storage keys. The names match what earlier releases of the app wrote to
// device storage, so existing data keeps loading.
const (
	KeySubmissions = "music_submissions"
	KeyUserRole    = "user_role"
	KeyUserID      = "user_id"
)

// Storage is the durable key-value abstraction the repository mirrors into.
// Values are plain strings. Implementations can be in-memory, file-based, or
// remote; the repository does not care which one is used.
type Storage interface {
	// GetItem returns the value stored under key. ok is false when the key
	// is absent.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// InMemoryStorage is an in-memory implementation of Storage.
type InMemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewInMemoryStorage returns a new empty in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		items: make(map[string]string),
	}
}

// GetItem implements Storage.GetItem.
func (s *InMemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// SetItem implements Storage.SetItem.
func (s *InMemoryStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// RemoveItem implements Storage.RemoveItem.
func (s *InMemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys returns the keys currently held, in no particular order.
func (s *InMemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys
}
