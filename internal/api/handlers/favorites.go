package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Shapes the favorites endpoint can answer with.
const (
	// ShapeBare is an array of {id, user, car_listing: <id>, created_at}.
	ShapeBare = "bare"
	// ShapeWrapped is ShapeBare inside a page object.
	ShapeWrapped = "wrapped"
	// ShapeNested embeds the full listing in car_listing.
	ShapeNested = "nested"
	// ShapeListings is a bare array of listings.
	ShapeListings = "listings"
)

// ValidShape reports whether s names a favorites shape.
func ValidShape(s string) bool {
	switch s {
	case ShapeBare, ShapeWrapped, ShapeNested, ShapeListings:
		return true
	}
	return false
}

// FavoritesHandler serves the caller's favorites list.
type FavoritesHandler struct {
	store store.Store
	shape string
}

// NewFavoritesHandler creates a new FavoritesHandler. An unknown shape
// falls back to ShapeBare.
func NewFavoritesHandler(s store.Store, shape string) *FavoritesHandler {
	if !ValidShape(shape) {
		shape = ShapeBare
	}
	return &FavoritesHandler{store: s, shape: shape}
}

type favoriteEntry struct {
	ID         int64     `json:"id"`
	User       int64     `json:"user"`
	CarListing any       `json:"car_listing"`
	CreatedAt  time.Time `json:"created_at"`
}

// FavoritesOutput is the favorites payload in the configured shape.
type FavoritesOutput struct {
	Body any
}

// List returns the caller's favorites, newest first.
func (h *FavoritesHandler) List(ctx context.Context, _ *struct{}) (*FavoritesOutput, error) {
	userID, _ := middleware.UserID(ctx)

	favs, err := h.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}

	switch h.shape {
	case ShapeNested, ShapeListings:
		entries := make([]favoriteEntry, 0, len(favs))
		listings := make([]domain.Listing, 0, len(favs))
		for _, f := range favs {
			l, err := h.store.GetListing(ctx, f.ListingID)
			if err != nil {
				continue
			}
			l.SetFavorite(true)
			listings = append(listings, *l)
			entries = append(entries, favoriteEntry{
				ID:         f.ID,
				User:       f.UserID,
				CarListing: l,
				CreatedAt:  f.CreatedAt,
			})
		}
		if h.shape == ShapeListings {
			return &FavoritesOutput{Body: listings}, nil
		}
		return &FavoritesOutput{Body: entries}, nil
	}

	entries := make([]favoriteEntry, 0, len(favs))
	for _, f := range favs {
		entries = append(entries, favoriteEntry{
			ID:         f.ID,
			User:       f.UserID,
			CarListing: f.ListingID,
			CreatedAt:  f.CreatedAt,
		})
	}
	if h.shape == ShapeWrapped {
		return &FavoritesOutput{Body: Page[favoriteEntry]{
			Count:   len(entries),
			Results: entries,
		}}, nil
	}
	return &FavoritesOutput{Body: entries}, nil
}

// RegisterFavoriteRoutes registers the favorites list with the Huma API.
func RegisterFavoriteRoutes(api huma.API, h *FavoritesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-favorites",
		Method:      http.MethodGet,
		Path:        "/api/listings/favorites/",
		Summary:     "List the caller's favorites",
		Description: "The payload shape depends on the server's favorites shape: " +
			"an entry array, a page of entries, entries with embedded listings, or a listing array.",
		Tags:        []string{"favorites"},
		Security:    bearer,
		Middlewares: huma.Middlewares{middleware.RequireAuth(api)},
		Errors:      []int{http.StatusUnauthorized},
	}, h.List)
}
