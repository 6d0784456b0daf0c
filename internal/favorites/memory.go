package favorites

import (
	"context"
	"sync"
)

// MemoryBackend keeps favorites in process memory only.
type MemoryBackend struct {
	mu  sync.Mutex
	ids map[string]bool
}

// NewMemoryBackend returns a backend seeded with ids.
func NewMemoryBackend(ids ...string) *MemoryBackend {
	b := &MemoryBackend{ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		b.ids[id] = true
	}
	return b
}

// Load returns a copy of the held set.
func (b *MemoryBackend) Load(_ context.Context) (map[string]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]bool, len(b.ids))
	for id := range b.ids {
		out[id] = true
	}
	return out, nil
}

// Store replaces the held set.
func (b *MemoryBackend) Store(_ context.Context, ids map[string]bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = ids
	return nil
}
