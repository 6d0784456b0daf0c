package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func newSeeded(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(WithHashCost(bcrypt.MinCost))
	require.NoError(t, Seed(context.Background(), s))
	return s
}

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSeeded(t)

	all, total, err := s.ListListings(ctx, &ListingQuery{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, all, 12)

	l, err := s.GetListing(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "BMW", l.Brand)
	require.NotNil(t, l.User)
	assert.Equal(t, "mihai", l.User.Username)

	favs, err := s.ListFavorites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, int64(6), favs[0].ListingID, "newest first")
}

func TestMemoryStore_Users(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSeeded(t)

	u, err := s.Authenticate(ctx, "ana", "parola123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = s.Authenticate(ctx, "ana", "wrong")
	require.ErrorIs(t, err, ErrInvalidLogin)
	_, err = s.Authenticate(ctx, "nobody", "x")
	require.ErrorIs(t, err, ErrInvalidLogin)

	err = s.CreateUser(ctx, &domain.User{Username: "ANA"}, "x")
	require.ErrorIs(t, err, ErrConflict)

	nu := &domain.User{Username: "dan", Email: "dan@example.ro"}
	require.NoError(t, s.CreateUser(ctx, nu, "secret"))
	assert.Equal(t, int64(4), nu.ID)

	u.Phone = "0700000000"
	require.NoError(t, s.UpdateUser(ctx, u))
	l, err := s.GetListing(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0700000000", l.User.Phone)

	_, err = s.GetUser(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListListings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSeeded(t)

	tests := []struct {
		name      string
		query     *ListingQuery
		wantTotal int
		wantLen   int
	}{
		{name: "default page", query: &ListingQuery{}, wantTotal: 12, wantLen: 10},
		{name: "second page", query: &ListingQuery{Offset: 10}, wantTotal: 12, wantLen: 2},
		{name: "past the end", query: &ListingQuery{Offset: 50}, wantTotal: 12, wantLen: 0},
		{name: "brand", query: &ListingQuery{Brand: "Dacia"}, wantTotal: 2, wantLen: 2},
		{name: "owner", query: &ListingQuery{OwnerID: ptr(int64(1)), Limit: 3}, wantTotal: 6, wantLen: 3},
		{name: "nil query", query: nil, wantTotal: 12, wantLen: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, total, err := s.ListListings(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestMemoryStore_ListingLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithHashCost(bcrypt.MinCost), WithClock(func() time.Time { return fixed }))

	owner := &domain.User{Username: "ana"}
	require.NoError(t, s.CreateUser(ctx, owner, "x"))

	l := &domain.Listing{
		User:   owner,
		Brand:  "Dacia",
		Price:  5000,
		Images: []domain.Image{{ImagePath: "/media/a.jpg", IsMain: true}},
	}
	require.NoError(t, s.CreateListing(ctx, l))
	assert.Equal(t, int64(1), l.ID)
	assert.Equal(t, int64(1), l.Images[0].ID)
	assert.Equal(t, fixed, *l.CreatedAt)

	// Mutating the caller's copy must not leak into the store.
	l.Images[0].ImagePath = "changed"
	got, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "/media/a.jpg", got.Images[0].ImagePath)

	got.Price = 4500
	got.User = nil
	require.NoError(t, s.UpdateListing(ctx, got))
	updated, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 4500, updated.Price)
	require.NotNil(t, updated.User, "owner is kept on update")

	added, err := s.ToggleFavorite(ctx, owner.ID, l.ID)
	require.NoError(t, err)
	assert.True(t, added)

	require.NoError(t, s.DeleteListing(ctx, l.ID))
	_, err = s.GetListing(ctx, l.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.DeleteListing(ctx, l.ID), ErrNotFound)

	favs, err := s.ListFavorites(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, favs, "favorites of a deleted listing are removed")
}

func TestMemoryStore_ToggleFavorite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSeeded(t)

	added, err := s.ToggleFavorite(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.ToggleFavorite(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = s.ToggleFavorite(ctx, 2, 999)
	require.ErrorIs(t, err, ErrNotFound)

	all, err := s.AllFavorites(ctx)
	require.NoError(t, err)
	counts := map[int64]int{}
	for _, f := range all {
		counts[f.ListingID]++
	}
	assert.Len(t, all, 4)
	assert.Equal(t, 2, counts[3])
	assert.Zero(t, counts[1])
}

func TestMemoryStore_Interactions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSeeded(t)

	require.NoError(t, s.RecordInteraction(ctx, 1, domain.Interaction{ListingID: 2, Type: domain.InteractionView}))
	require.ErrorIs(t, s.RecordInteraction(ctx, 1, domain.Interaction{ListingID: 404}), ErrNotFound)

	got, err := s.ListInteractions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Interaction{{ListingID: 2, Type: domain.InteractionView}}, got)

	fav := domain.Interaction{ListingID: 4, Type: domain.InteractionFavorite}
	require.NoError(t, s.RecordInteraction(ctx, 1, fav))
	require.NoError(t, s.RecordInteraction(ctx, 1, fav))
	require.NoError(t, s.RecordInteraction(ctx, 2, domain.Interaction{ListingID: 4, Type: domain.InteractionContact}))

	got, err = s.ListInteractions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 2, "a favorite is recorded once")

	require.NoError(t, s.RecordInteraction(ctx, 1, domain.Interaction{ListingID: 4, Type: domain.InteractionUnfavorite}))
	got, err = s.ListInteractions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Interaction{{ListingID: 2, Type: domain.InteractionView}}, got)

	all, err := s.AllInteractions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []UserInteraction{
		{UserID: 1, Interaction: domain.Interaction{ListingID: 2, Type: domain.InteractionView}},
		{UserID: 2, Interaction: domain.Interaction{ListingID: 4, Type: domain.InteractionContact}},
	}, all)
}

func TestMemoryStore_RevokeToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryStore_PruneRevoked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return now }))

	require.NoError(t, s.RevokeToken(ctx, "expired", now.Add(-time.Minute)))
	require.NoError(t, s.RevokeToken(ctx, "live", now.Add(time.Hour)))

	n, err := s.PruneRevoked(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	revoked, err := s.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = s.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}
