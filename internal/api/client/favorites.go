package client

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Favorites returns the caller's raw favorites payload. The API has served
// it as a page object, a bare array of references, and an array with
// nested listings, so normalization is left to the favorites package.
func (c *Client) Favorites(ctx context.Context) (json.RawMessage, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/listings/favorites/", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ToggleFavorite adds the listing to favorites, or removes it if it was
// already there.
func (c *Client) ToggleFavorite(ctx context.Context, id int64) (*domain.FavoriteToggle, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var resp domain.FavoriteToggle
	if err := c.post(ctx, fmt.Sprintf("/listings/cars/%d/favorite/", id), struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
