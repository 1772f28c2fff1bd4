package dispatch

import (
	"context"
	"sync"
)

// DedupeStore records which dedupe keys have already been dispatched. The
// record store is an external collaborator; implementations must make
// MarkIfAbsent atomic so two dispatchers never both claim the same key.
type DedupeStore interface {
	// MarkIfAbsent records the key and returns true when it was not yet
	// present; false means the key was already dispatched.
	MarkIfAbsent(ctx context.Context, key string) (bool, error)
}

// MemoryDedupeStore is an in-process dedupe store for tests and single-node
// deployments.
type MemoryDedupeStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupeStore() *MemoryDedupeStore {
	return &MemoryDedupeStore{seen: make(map[string]struct{})}
}

func (s *MemoryDedupeStore) MarkIfAbsent(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false, nil
	}

	s.seen[key] = struct{}{}

	return true, nil
}
