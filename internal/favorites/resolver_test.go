package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// fakeAPI serves listing details from a map; ids in fail return an error.
type fakeAPI struct {
	payload  string
	listErr  error
	fail     map[int64]bool
	delay    time.Duration
	mu       sync.Mutex
	fetched  []int64
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeAPI) Favorites(context.Context) (json.RawMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return json.RawMessage(f.payload), nil
}

func (f *fakeAPI) GetListing(_ context.Context, id int64) (*domain.Listing, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if f.fail[id] {
		return nil, errors.New("listing not found")
	}
	return &domain.Listing{ID: id, Brand: "Dacia"}, nil
}

func (*fakeAPI) ToggleFavorite(context.Context, int64) (*domain.FavoriteToggle, error) {
	return nil, errors.New("not used")
}

func ids(listings []domain.Listing) []int64 {
	out := make([]int64, 0, len(listings))
	for i := range listings {
		out = append(out, listings[i].ID)
	}
	return out
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   string
		fail      map[int64]bool
		seed      []string
		wantIDs   []int64
		wantCache []string
	}{
		{
			name:      "wrapped numeric",
			payload:   `{"results":[{"car_listing":5}]}`,
			wantIDs:   []int64{5},
			wantCache: []string{"5"},
		},
		{
			name:      "wrapped nested",
			payload:   `{"results":[{"car_listing":{"id":5}}]}`,
			wantIDs:   []int64{5},
			wantCache: []string{"5"},
		},
		{
			name:      "bare ids",
			payload:   `[{"id":5}]`,
			wantIDs:   []int64{5},
			wantCache: []string{"5"},
		},
		{
			name:      "one failure keeps the rest",
			payload:   `[{"car_listing":1},{"car_listing":2},{"car_listing":3}]`,
			fail:      map[int64]bool{2: true},
			seed:      []string{"2"},
			wantIDs:   []int64{1, 3},
			wantCache: []string{"1", "3"},
		},
		{
			name:      "stale cache entries are purged",
			payload:   `[{"car_listing":4}]`,
			seed:      []string{"1", "2", "4"},
			wantIDs:   []int64{4},
			wantCache: []string{"4"},
		},
		{
			name:      "all fail",
			payload:   `[{"car_listing":1},{"car_listing":2}]`,
			fail:      map[int64]bool{1: true, 2: true},
			seed:      []string{"1"},
			wantIDs:   []int64{},
			wantCache: []string{},
		},
		{
			name:      "empty payload empties cache",
			payload:   `{"results":[]}`,
			seed:      []string{"9"},
			wantIDs:   []int64{},
			wantCache: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{payload: tt.payload, fail: tt.fail}
			cache := newMemoryCache(t, tt.seed...)
			r := NewResolver(api, cache)

			got := r.Resolve(context.Background())
			assert.Equal(t, tt.wantIDs, ids(got))
			for i := range got {
				assert.True(t, got[i].Favorite())
			}
			assert.Equal(t, tt.wantCache, cache.IDs())
		})
	}
}

func TestResolver_FetchesEachIDOnce(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{payload: `[{"car_listing":5},{"car_listing":{"id":5}},{"id":5}]`}
	r := NewResolver(api, newMemoryCache(t))

	got := r.Resolve(context.Background())
	assert.Equal(t, []int64{5}, ids(got))
	assert.Equal(t, []int64{5}, api.fetched)
}

func TestResolver_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		payload: `[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7},{"id":8}]`,
		delay:   20 * time.Millisecond,
	}
	r := NewResolver(api, newMemoryCache(t), WithConcurrency(3))

	got := r.Resolve(context.Background())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, ids(got))
	assert.LessOrEqual(t, api.peak.Load(), int32(3))
	assert.Greater(t, api.peak.Load(), int32(1))
}

func TestResolver_OuterFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{listErr: errors.New("API server not running at http://localhost:8000/api")}
	cache := newMemoryCache(t, "1")
	r := NewResolver(api, cache)

	got := r.Resolve(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []string{"1"}, cache.IDs(), "cache is untouched when the list fetch fails")
}

func TestResolver_UnrecognizedPayload(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache(t, "1")
	r := NewResolver(&fakeAPI{payload: `{"detail":"odd"}`}, cache)

	assert.Empty(t, r.Resolve(context.Background()))
	assert.Equal(t, []string{"1"}, cache.IDs())
}

func TestResolver_CancelledLeavesCache(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache(t, "1")
	r := NewResolver(&fakeAPI{}, cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.ResolvePayload(ctx, json.RawMessage(`[{"id":2}]`))
	assert.Equal(t, []string{"1"}, cache.IDs())
}

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Favorites(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockAPI) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Listing)
	return l, args.Error(1)
}

func (m *mockAPI) ToggleFavorite(ctx context.Context, id int64) (*domain.FavoriteToggle, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.FavoriteToggle)
	return t, args.Error(1)
}

func TestResolver_Toggle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seed      []string
		status    string
		err       error
		wantAdded bool
		wantCache []string
		wantErr   bool
	}{
		{name: "added", status: "added", wantAdded: true, wantCache: []string{"5"}},
		{name: "added to favorites", status: "added to favorites", wantAdded: true, wantCache: []string{"5"}},
		{name: "removed", seed: []string{"5"}, status: "removed from favorites", wantCache: []string{}},
		{name: "unknown status unsets", seed: []string{"5"}, status: "ok", wantCache: []string{}},
		{name: "server error leaves cache", seed: []string{"5"}, err: errors.New("boom"), wantCache: []string{"5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := new(mockAPI)
			if tt.err != nil {
				api.On("ToggleFavorite", mock.Anything, int64(5)).Return(nil, tt.err)
			} else {
				api.On("ToggleFavorite", mock.Anything, int64(5)).
					Return(&domain.FavoriteToggle{Status: tt.status}, nil)
			}

			cache := newMemoryCache(t, tt.seed...)
			r := NewResolver(api, cache)

			added, err := r.Toggle(context.Background(), 5)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantCache, cache.IDs())
			api.AssertExpectations(t)
		})
	}
}

func TestResolver_Listing(t *testing.T) {
	t.Parallel()

	api := new(mockAPI)
	api.On("GetListing", mock.Anything, int64(5)).Return(&domain.Listing{ID: 5}, nil)
	api.On("GetListing", mock.Anything, int64(6)).Return(nil, errors.New("not found"))

	r := NewResolver(api, newMemoryCache(t, "5"))

	l, err := r.Listing(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, l.Favorite())

	_, err = r.Listing(context.Background(), 6)
	require.Error(t, err)
	api.AssertExpectations(t)
}
