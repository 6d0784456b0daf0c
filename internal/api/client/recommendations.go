package client

import (
	"context"
	"net/url"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Recommendation algorithms served by the API.
const (
	AlgorithmCollaborative = "collaborative"
	AlgorithmContent       = "content"
	AlgorithmHybrid        = "hybrid"
)

// RecommendationsForYou returns personalized listing recommendations.
func (c *Client) RecommendationsForYou(ctx context.Context) ([]domain.Listing, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var listings []domain.Listing
	if err := c.get(ctx, "/recommendations/for_you/", &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// RecommendationsByAlgorithm returns recommendations from one named
// algorithm.
func (c *Client) RecommendationsByAlgorithm(
	ctx context.Context,
	algorithm string,
) ([]domain.Listing, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var listings []domain.Listing
	path := "/recommendations/algorithm/" + url.PathEscape(algorithm) + "/"
	if err := c.get(ctx, path, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// RecordInteraction reports a user action to the recommendation engine.
// It is fire-and-forget: signed-out callers are skipped and failures are
// only logged.
func (c *Client) RecordInteraction(ctx context.Context, in domain.Interaction) {
	if c.token() == "" {
		return
	}
	if err := c.post(ctx, "/recommendations/interactions/", in, nil); err != nil {
		c.log.Warn("recording interaction",
			"listing_id", in.ListingID,
			"type", in.Type,
			"err", err,
		)
	}
}
