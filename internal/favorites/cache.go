// Package favorites keeps the local favorite cache and resolves the server's
// favorites payload into hydrated listings.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/donaldgifford/auto-marketplace/pkg/logger"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Backend persists the favorite id set.
type Backend interface {
	Load(ctx context.Context) (map[string]bool, error)
	Store(ctx context.Context, ids map[string]bool) error
}

// Cache is the local favorite cache, keyed by listing id. Every mutation is
// written through to the backend before it becomes visible.
type Cache struct {
	mu      sync.Mutex
	ids     map[string]bool
	backend Backend
	log     *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.log = logger.Component(l, "favorite-cache")
	}
}

// NewCache loads the current id set from the backend.
func NewCache(ctx context.Context, backend Backend, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		ids:     make(map[string]bool),
		backend: backend,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ids, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading favorites: %w", err)
	}
	for id, v := range ids {
		if v {
			c.ids[id] = true
		}
	}
	return c, nil
}

// Has reports whether id is cached as a favorite.
func (c *Cache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids[id]
}

// HasListing is Has keyed by numeric listing id.
func (c *Cache) HasListing(id int64) bool {
	return c.Has(strconv.FormatInt(id, 10))
}

// Set marks id as a favorite.
func (c *Cache) Set(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := maps.Clone(c.ids)
	next[id] = true
	return c.commitLocked(ctx, next)
}

// Unset removes id.
func (c *Cache) Unset(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := maps.Clone(c.ids)
	delete(next, id)
	return c.commitLocked(ctx, next)
}

// ReplaceAll overwrites the cache with exactly ids.
func (c *Cache) ReplaceAll(ctx context.Context, ids []string) error {
	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitLocked(ctx, next)
}

// IDs returns the cached ids, sorted.
func (c *Cache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of cached ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// Annotate fills an unset favorite flag from the cache. A flag reported by
// the server is left alone.
func (c *Cache) Annotate(l *domain.Listing) {
	if l == nil || l.IsFavorite != nil {
		return
	}
	if c.Has(l.Key()) {
		l.SetFavorite(true)
	}
}

// commitLocked persists next and only then makes it the cached set, so a
// failed write leaves the cache as it was.
func (c *Cache) commitLocked(ctx context.Context, next map[string]bool) error {
	if err := c.backend.Store(ctx, maps.Clone(next)); err != nil {
		c.log.Error("persisting favorites", "err", err)
		return fmt.Errorf("persisting favorites: %w", err)
	}
	c.ids = next
	return nil
}
