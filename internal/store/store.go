// Package store defines the datastore behind the mock marketplace API.
// Handlers depend on the Store interface; MemoryStore is the only
// implementation.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidLogin = errors.New("invalid credentials")
)

// Favorite is one user bookmark of a listing.
type Favorite struct {
	ID        int64
	UserID    int64
	ListingID int64
	CreatedAt time.Time
}

// UserInteraction is an interaction together with the user who made it.
type UserInteraction struct {
	UserID int64
	domain.Interaction
}

// Store defines all data access operations of the mock API.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User, password string) error
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error

	// Listings
	ListListings(ctx context.Context, q *ListingQuery) ([]domain.Listing, int, error)
	GetListing(ctx context.Context, id int64) (*domain.Listing, error)
	CreateListing(ctx context.Context, l *domain.Listing) error
	UpdateListing(ctx context.Context, l *domain.Listing) error
	DeleteListing(ctx context.Context, id int64) error

	// Favorites
	ToggleFavorite(ctx context.Context, userID, listingID int64) (added bool, err error)
	ListFavorites(ctx context.Context, userID int64) ([]Favorite, error)
	AllFavorites(ctx context.Context) ([]Favorite, error)

	// Interactions
	RecordInteraction(ctx context.Context, userID int64, in domain.Interaction) error
	ListInteractions(ctx context.Context, userID int64) ([]domain.Interaction, error)
	AllInteractions(ctx context.Context) ([]UserInteraction, error)

	// Tokens
	RevokeToken(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
	PruneRevoked(ctx context.Context) (int, error)
}
