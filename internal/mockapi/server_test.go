package mockapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/donaldgifford/auto-marketplace/internal/api/client"
	"github.com/donaldgifford/auto-marketplace/internal/api/handlers"
	"github.com/donaldgifford/auto-marketplace/internal/auth"
	"github.com/donaldgifford/auto-marketplace/internal/favorites"
	"github.com/donaldgifford/auto-marketplace/internal/mockapi"
	"github.com/donaldgifford/auto-marketplace/internal/mylistings"
	"github.com/donaldgifford/auto-marketplace/internal/session"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const secret = "e2e-secret"

func startServer(t *testing.T, cfg mockapi.Config) *httptest.Server {
	t.Helper()

	s := store.NewMemoryStore(store.WithHashCost(bcrypt.MinCost))
	require.NoError(t, store.Seed(context.Background(), s))

	cfg.JWTSecret = secret
	ts := httptest.NewServer(mockapi.New(s, cfg, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

type harness struct {
	client *client.Client
	creds  *session.Store
	events *session.Events
}

func newSession(t *testing.T, ts *httptest.Server) *harness {
	t.Helper()
	creds, err := session.NewStore(filepath.Join(t.TempDir(), "credentials.yaml"))
	require.NoError(t, err)
	events := session.NewEvents()
	c := client.New(ts.URL+"/api/",
		client.WithCredentials(creds),
		client.WithSessionEvents(events),
		client.WithTimeout(5*time.Second),
	)
	return &harness{client: c, creds: creds, events: events}
}

func (s *harness) login(t *testing.T, email, password string) {
	t.Helper()
	_, err := s.client.Login(context.Background(), domain.Credentials{Email: email, Password: password})
	require.NoError(t, err)
}

func TestServer_OperationalEndpoints(t *testing.T) {
	t.Parallel()

	ts := startServer(t, mockapi.Config{})

	for _, path := range []string{"/healthz", "/metrics", "/swagger/openapi.json", "/swagger/openapi.yaml", "/swagger/index.html"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestServer_OpenAPIDocument(t *testing.T) {
	t.Parallel()

	ts := startServer(t, mockapi.Config{Version: "1.0.0"})
	resp, err := http.Get(ts.URL + "/swagger/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths      map[string]map[string]any `json:"paths"`
		Components struct {
			SecuritySchemes map[string]any `json:"securitySchemes"`
		} `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.Contains(t, doc.Components.SecuritySchemes, "bearer")

	tests := []struct {
		path    string
		methods []string
	}{
		{path: "/api/listings/cars/", methods: []string{"get", "post"}},
		{path: "/api/listings/cars/my_listings/", methods: []string{"get"}},
		{path: "/api/listings/cars/{id}/", methods: []string{"get", "put", "patch", "delete"}},
		{path: "/api/listings/cars/{id}/favorite/", methods: []string{"post"}},
		{path: "/api/listings/favorites/", methods: []string{"get"}},
		{path: "/api/listings/calculator/", methods: []string{"post"}},
		{path: "/api/users/login/", methods: []string{"post"}},
		{path: "/api/users/{id}/", methods: []string{"get"}},
		{path: "/api/token/refresh/", methods: []string{"post"}},
		{path: "/api/recommendations/for_you/", methods: []string{"get"}},
		{path: "/api/recommendations/algorithm/{algorithm}/", methods: []string{"get"}},
	}
	for _, tt := range tests {
		require.Contains(t, doc.Paths, tt.path)
		for _, m := range tt.methods {
			assert.Contains(t, doc.Paths[tt.path], m, tt.path)
		}
	}
}

func TestServer_FavoritesResolveEveryShape(t *testing.T) {
	t.Parallel()

	for _, shape := range []string{
		handlers.ShapeBare,
		handlers.ShapeWrapped,
		handlers.ShapeNested,
		handlers.ShapeListings,
	} {
		t.Run(shape, func(t *testing.T) {
			t.Parallel()

			ts := startServer(t, mockapi.Config{FavoritesShape: shape})
			s := newSession(t, ts)
			s.login(t, "ana@example.ro", "parola123")

			ctx := context.Background()
			cache, err := favorites.NewCache(ctx, favorites.NewMemoryBackend("12"))
			require.NoError(t, err)
			r := favorites.NewResolver(s.client, cache)

			got := r.Resolve(ctx)
			var ids []int64
			for _, l := range got {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, []int64{6, 3}, ids)
			assert.Equal(t, []string{"3", "6"}, cache.IDs(), "cache mirrors the server")

			added, err := r.Toggle(ctx, 4)
			require.NoError(t, err)
			assert.True(t, added)
			assert.True(t, cache.HasListing(4))
		})
	}
}

func TestServer_MyListingsAggregation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       bool
		wantStop  string
		wantPages int
	}{
		{name: "paginated", wantStop: mylistings.StopNoNext, wantPages: 2},
		{name: "bare array", raw: true, wantStop: mylistings.StopFallback, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := startServer(t, mockapi.Config{RawMyListings: tt.raw})
			s := newSession(t, ts)
			s.login(t, "ana@example.ro", "parola123")

			var provisional *mylistings.Collection
			agg := mylistings.New(s.client,
				mylistings.WithPageSize(4),
				mylistings.WithOnFirstPage(func(c *mylistings.Collection) { provisional = c }),
			)

			coll, err := agg.Aggregate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 6, coll.Len())
			assert.Equal(t, 2, coll.PageCount())
			assert.Equal(t, tt.wantStop, coll.StoppedAt)
			assert.Equal(t, tt.wantPages, coll.PagesFetched)

			if tt.raw {
				assert.Nil(t, provisional)
				return
			}
			require.NotNil(t, provisional)
			assert.True(t, provisional.Provisional)
			assert.Equal(t, 4, provisional.Len())
			assert.Equal(t, 2, provisional.PageCount())
		})
	}
}

func TestServer_ExpiredTokenEndsSession(t *testing.T) {
	t.Parallel()

	ts := startServer(t, mockapi.Config{})
	s := newSession(t, ts)

	stale := auth.NewIssuer(secret, auth.WithClock(func() time.Time {
		return time.Now().Add(-3 * time.Hour)
	}))
	tok, err := stale.Issue(1, auth.TypeAccess)
	require.NoError(t, err)
	require.NoError(t, s.creds.Save(session.Credentials{Token: tok}))

	ch, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	cache, err := favorites.NewCache(ctx, favorites.NewMemoryBackend("3"))
	require.NoError(t, err)
	got := favorites.NewResolver(s.client, cache).Resolve(ctx)

	assert.Empty(t, got)
	assert.Equal(t, []string{"3"}, cache.IDs(), "cache untouched when the list call fails")
	assert.Empty(t, s.creds.Token())

	select {
	case ev := <-ch:
		assert.Equal(t, http.StatusUnauthorized, ev.StatusCode)
		assert.Equal(t, "token_expired", ev.Code)
		assert.Equal(t, "/listings/favorites/", ev.Path)
	default:
		t.Fatal("no session event published")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %+v", ev)
	default:
	}

	_, err = s.client.Favorites(ctx)
	require.ErrorIs(t, err, client.ErrNotAuthenticated)
}

func TestServer_LoginLogoutRoundTrip(t *testing.T) {
	t.Parallel()

	ts := startServer(t, mockapi.Config{})
	s := newSession(t, ts)
	s.login(t, "mihai@example.ro", "parola123")

	ctx := context.Background()
	u, err := s.client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mihai", u.Username)

	refresh := s.creds.Credentials().RefreshToken
	require.NotEmpty(t, refresh)
	require.NoError(t, s.client.Logout(ctx, refresh))
	assert.Empty(t, s.creds.Token())

	_, err = s.client.Profile(ctx)
	require.ErrorIs(t, err, client.ErrNotAuthenticated)
}
