package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/auto-marketplace/internal/metrics"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// DefaultConcurrency bounds the detail fetches in flight at once.
const DefaultConcurrency = 8

// API is the subset of the marketplace client the resolver uses.
type API interface {
	Favorites(ctx context.Context) (json.RawMessage, error)
	GetListing(ctx context.Context, id int64) (*domain.Listing, error)
	ToggleFavorite(ctx context.Context, id int64) (*domain.FavoriteToggle, error)
}

// Resolver turns the favorites payload into hydrated listings and keeps the
// cache in step with the server.
type Resolver struct {
	api         API
	cache       *Cache
	concurrency int
	log         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds the concurrent detail fetches.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = logger.Component(l, "favorites")
	}
}

// NewResolver creates a resolver over api and cache.
func NewResolver(api API, cache *Cache, opts ...Option) *Resolver {
	r := &Resolver{
		api:         api,
		cache:       cache,
		concurrency: DefaultConcurrency,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the underlying favorite cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve fetches the user's favorites and hydrates each one. Failures are
// logged and degrade to a shorter (possibly empty) result.
func (r *Resolver) Resolve(ctx context.Context) []domain.Listing {
	raw, err := r.api.Favorites(ctx)
	if err != nil {
		r.log.Error("fetching favorites", "err", err)
		return []domain.Listing{}
	}
	return r.ResolvePayload(ctx, raw)
}

// ResolvePayload hydrates the listings referenced by a favorites payload.
// Output follows reference order. Once every fetch has settled the cache is
// overwritten with exactly the resolved ids.
func (r *Resolver) ResolvePayload(ctx context.Context, raw json.RawMessage) []domain.Listing {
	ids, err := ParseReferences(raw)
	if err != nil {
		r.log.Error("parsing favorites", "err", err)
		return []domain.Listing{}
	}

	slots := make([]*domain.Listing, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			l, err := r.api.GetListing(ctx, id)
			if err != nil {
				metrics.FavoritesDroppedTotal.Inc()
				r.log.Warn("dropping favorite", "listing_id", id, "err", err)
				return nil
			}
			if l == nil {
				metrics.FavoritesDroppedTotal.Inc()
				return nil
			}
			l.SetFavorite(true)
			slots[i] = l
			return nil
		})
	}
	_ = g.Wait()

	listings := make([]domain.Listing, 0, len(slots))
	keys := make([]string, 0, len(slots))
	for _, l := range slots {
		if l == nil {
			continue
		}
		listings = append(listings, *l)
		keys = append(keys, l.Key())
	}
	metrics.FavoritesResolvedTotal.Add(float64(len(listings)))

	if ctx.Err() != nil {
		r.log.Warn("favorites resolution cancelled, cache left unchanged", "err", ctx.Err())
		return listings
	}
	if err := r.cache.ReplaceAll(ctx, keys); err != nil {
		r.log.Error("rewriting favorite cache", "err", err)
	}

	r.log.Debug("favorites resolved",
		"references", len(ids),
		"resolved", len(listings),
	)
	return listings
}

// Toggle flips the favorite state of a listing on the server and mirrors
// the result in the cache. It reports whether the listing is now a
// favorite.
func (r *Resolver) Toggle(ctx context.Context, id int64) (bool, error) {
	resp, err := r.api.ToggleFavorite(ctx, id)
	if err != nil {
		return false, fmt.Errorf("toggling favorite %d: %w", id, err)
	}

	key := strconv.FormatInt(id, 10)
	added := resp.Added()
	if added {
		err = r.cache.Set(ctx, key)
	} else {
		err = r.cache.Unset(ctx, key)
	}
	return added, err
}

// Listing fetches one listing and fills its favorite flag from the cache
// when the server left it unset.
func (r *Resolver) Listing(ctx context.Context, id int64) (*domain.Listing, error) {
	l, err := r.api.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Annotate(l)
	return l, nil
}
