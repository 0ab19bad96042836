package instance

import (
	"context"
	"fmt"
	"sync"

	"driftsync/internal/api"
	"driftsync/internal/kinds"
	"driftsync/internal/reconciler"
)

// MemoryStore is an in-memory instance store. It backs `serve --standalone`
// and the test suites; writes validate content the way a real instance
// would, so the applier's ValidationError path is exercised end to end.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[reconciler.ResourceKey][]byte
	revision map[reconciler.ResourceKey]int

	// Validating enables server-side structural validation on Write.
	Validating bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[reconciler.ResourceKey][]byte),
		revision: make(map[reconciler.ResourceKey]int),
	}
}

// Seed stores content without validation or revision semantics beyond the
// usual increment. Test and standalone setup helper.
func (s *MemoryStore) Seed(key reconciler.ResourceKey, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	s.revision[key]++
}

// Read snapshots one (scope, kind) pair.
func (s *MemoryStore) Read(ctx context.Context, scope string, kind reconciler.Kind) (map[reconciler.ResourceKey]reconciler.ResourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[reconciler.ResourceKey]reconciler.ResourceRecord)
	for key, content := range s.data {
		if key.Kind != kind || key.Scope != scope {
			continue
		}
		records[key] = reconciler.ResourceRecord{
			Key:          key,
			Content:      append([]byte(nil), content...),
			Origin:       reconciler.OriginInstance,
			ChangeMarker: fmt.Sprintf("rev%d", s.revision[key]),
		}
	}
	return records, nil
}

// Write stores content for the key, validating it first when Validating is
// set.
func (s *MemoryStore) Write(ctx context.Context, key reconciler.ResourceKey, content []byte) error {
	if s.Validating {
		if adapter, ok := kinds.ByKind(key.Kind); ok && adapter.Validate != nil {
			if err := adapter.Validate(content); err != nil {
				return api.NewValidationError(key.String(), err)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	s.revision[key]++
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key reconciler.ResourceKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len reports the number of stored resources.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Get returns the stored content for a key.
func (s *MemoryStore) Get(key reconciler.ResourceKey) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), content...), true
}
