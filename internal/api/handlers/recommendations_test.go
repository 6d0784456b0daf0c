package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func TestRecommendations_ForYou(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})

	rec := f.do(t, http.MethodGet, "/api/recommendations/for_you/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, q := range []string{"", "?algorithm=content", "?algorithm=collaborative"} {
		rec = f.do(t, http.MethodGet, "/api/recommendations/for_you/"+q, nil, f.token(t, 1))
		require.Equal(t, http.StatusOK, rec.Code, q)

		items := decode[[]domain.Listing](t, rec)
		require.NotEmpty(t, items, q)
		assert.LessOrEqual(t, len(items), 12)
		for _, l := range items {
			assert.NotEqual(t, int64(1), l.User.ID, "own listing %d recommended (%s)", l.ID, q)
			assert.NotContains(t, []int64{3, 6}, l.ID, "favorited listing recommended (%s)", q)
		}
	}
}

func TestRecommendations_NewUserGetsPopular(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})

	rec := f.do(t, http.MethodGet, "/api/recommendations/for_you/", nil, f.token(t, 3))
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]domain.Listing](t, rec)
	require.Len(t, items, 12)
	// Listing 3 has two favorites, listing 5 and 6 one each.
	assert.Equal(t, int64(3), items[0].ID)
	assert.ElementsMatch(t, []int64{6, 5}, listingIDs(items[1:3]))
}

func TestRecommendations_ByAlgorithm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	tok := f.token(t, 2)

	for _, alg := range []string{"collaborative", "content", "hybrid"} {
		rec := f.do(t, http.MethodGet, "/api/recommendations/algorithm/"+alg+"/", nil, tok)
		assert.Equal(t, http.StatusOK, rec.Code, alg)
	}

	rec := f.do(t, http.MethodGet, "/api/recommendations/algorithm/magic/", nil, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec), "error")
}

func TestRecommendations_RecordInteraction(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	tok := f.token(t, 1)

	tests := []struct {
		name       string
		body       domain.Interaction
		wantStatus int
	}{
		{"view", domain.Interaction{ListingID: 4, Type: domain.InteractionView}, http.StatusOK},
		{"default type", domain.Interaction{ListingID: 4}, http.StatusOK},
		{"unfavorite", domain.Interaction{ListingID: 4, Type: domain.InteractionUnfavorite}, http.StatusOK},
		{"missing listing id", domain.Interaction{Type: domain.InteractionView}, http.StatusBadRequest},
		{"unknown type", domain.Interaction{ListingID: 4, Type: "stare"}, http.StatusBadRequest},
		{"unknown listing", domain.Interaction{ListingID: 404, Type: domain.InteractionClick}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/recommendations/interactions/", tt.body, tok)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	got, err := f.store.ListInteractions(t.Context(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
