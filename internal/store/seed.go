package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

//go:embed seed.json
var seedJSON []byte

type seedUser struct {
	domain.User
	Password string `json:"password"`
}

type seedListing struct {
	domain.Listing
	Owner int64 `json:"owner"`
}

type seedFavorite struct {
	User    int64 `json:"user"`
	Listing int64 `json:"listing"`
}

type seedData struct {
	Users     []seedUser     `json:"users"`
	Listings  []seedListing  `json:"listings"`
	Favorites []seedFavorite `json:"favorites"`
}

// Seed loads the bundled demo users, listings, and favorites into s.
func Seed(ctx context.Context, s Store) error {
	return SeedFrom(ctx, s, seedJSON)
}

// SeedFrom loads a fixture in the bundled seed format.
func SeedFrom(ctx context.Context, s Store, data []byte) error {
	var seed seedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed: %w", err)
	}

	for i := range seed.Users {
		u := seed.Users[i].User
		if err := s.CreateUser(ctx, &u, seed.Users[i].Password); err != nil {
			return fmt.Errorf("seeding user %q: %w", u.Username, err)
		}
	}

	for i := range seed.Listings {
		l := seed.Listings[i].Listing
		owner, err := s.GetUser(ctx, seed.Listings[i].Owner)
		if err != nil {
			return fmt.Errorf("seeding listing %d: %w", l.ID, err)
		}
		l.User = owner
		if err := s.CreateListing(ctx, &l); err != nil {
			return fmt.Errorf("seeding listing %d: %w", l.ID, err)
		}
	}

	for _, f := range seed.Favorites {
		if _, err := s.ToggleFavorite(ctx, f.User, f.Listing); err != nil {
			return fmt.Errorf("seeding favorite %d/%d: %w", f.User, f.Listing, err)
		}
	}
	return nil
}
