package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/recommend"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// RecommendationsHandler serves personalized listing recommendations and
// records the interactions they are built from.
type RecommendationsHandler struct {
	store   store.Store
	weights recommend.Weights
}

// NewRecommendationsHandler creates a new RecommendationsHandler.
func NewRecommendationsHandler(s store.Store) *RecommendationsHandler {
	return &RecommendationsHandler{store: s, weights: recommend.DefaultWeights()}
}

// --- Input/Output types ---

// ForYouInput selects the recommendation algorithm.
type ForYouInput struct {
	Algorithm string `query:"algorithm" doc:"collaborative, content or hybrid (default)"`
}

// AlgorithmInput names the algorithm in the path.
type AlgorithmInput struct {
	Algorithm string `path:"algorithm" doc:"collaborative, content or hybrid"`
}

// InteractionInput is a recorded user action.
type InteractionInput struct {
	Body domain.Interaction
}

// InteractionOutput acknowledges a recorded interaction.
type InteractionOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// --- Handlers ---

// ForYou returns recommendations for the caller. An unknown algorithm falls
// back to hybrid.
func (h *RecommendationsHandler) ForYou(ctx context.Context, in *ForYouInput) (*ListingsOutput, error) {
	userID, _ := middleware.UserID(ctx)
	e, err := h.engine(ctx)
	if err != nil {
		return nil, err
	}
	return &ListingsOutput{Body: e.ForYou(userID, in.Algorithm)}, nil
}

// ByAlgorithm returns recommendations from the path algorithm.
func (h *RecommendationsHandler) ByAlgorithm(ctx context.Context, in *AlgorithmInput) (*ListingsOutput, error) {
	userID, _ := middleware.UserID(ctx)
	e, err := h.engine(ctx)
	if err != nil {
		return nil, err
	}
	items, err := e.ByAlgorithm(userID, in.Algorithm)
	if errors.Is(err, recommend.ErrUnknownAlgorithm) {
		return nil, apierror.Message(http.StatusBadRequest,
			"Unknown algorithm. Use 'collaborative', 'content' or 'hybrid'.")
	}
	if err != nil {
		return nil, fmt.Errorf("recommending: %w", err)
	}
	return &ListingsOutput{Body: items}, nil
}

// RecordInteraction stores a view, click, contact, favorite or unfavorite.
func (h *RecommendationsHandler) RecordInteraction(ctx context.Context, in *InteractionInput) (*InteractionOutput, error) {
	userID, _ := middleware.UserID(ctx)

	ev := in.Body
	if ev.ListingID == 0 {
		return nil, apierror.Message(http.StatusBadRequest, "listing_id is required")
	}
	if ev.Type == "" {
		ev.Type = domain.InteractionView
	}
	switch ev.Type {
	case domain.InteractionView, domain.InteractionClick, domain.InteractionContact,
		domain.InteractionFavorite, domain.InteractionUnfavorite:
	default:
		return nil, apierror.Message(http.StatusBadRequest, fmt.Sprintf("invalid interaction type: %s", ev.Type))
	}

	err := h.store.RecordInteraction(ctx, userID, ev)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierror.Message(http.StatusNotFound, "listing does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("recording interaction: %w", err)
	}
	out := &InteractionOutput{}
	out.Body.Status = "success"
	return out, nil
}

// RegisterRecommendationRoutes registers the recommendation endpoints with
// the Huma API.
func RegisterRecommendationRoutes(api huma.API, h *RecommendationsHandler) {
	requireAuth := huma.Middlewares{middleware.RequireAuth(api)}

	huma.Register(api, huma.Operation{
		OperationID: "recommendations-for-you",
		Method:      http.MethodGet,
		Path:        "/api/recommendations/for_you/",
		Summary:     "Recommend listings",
		Description: "Ranks listings for the caller from favorites and recorded interactions.",
		Tags:        []string{"recommendations"},
		Security:    bearer,
		Middlewares: requireAuth,
		Errors:      []int{http.StatusUnauthorized},
	}, h.ForYou)

	huma.Register(api, huma.Operation{
		OperationID: "recommendations-by-algorithm",
		Method:      http.MethodGet,
		Path:        "/api/recommendations/algorithm/{algorithm}/",
		Summary:     "Recommend listings with one algorithm",
		Tags:        []string{"recommendations"},
		Security:    bearer,
		Middlewares: requireAuth,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.ByAlgorithm)

	huma.Register(api, huma.Operation{
		OperationID:      "record-interaction",
		Method:           http.MethodPost,
		Path:             "/api/recommendations/interactions/",
		Summary:          "Record an interaction",
		Description:      "Type is view (default), click, contact, favorite or unfavorite.",
		Tags:             []string{"recommendations"},
		Security:         bearer,
		Middlewares:      requireAuth,
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, h.RecordInteraction)
}

// engine snapshots listings, favorites and interactions.
func (h *RecommendationsHandler) engine(ctx context.Context) (*recommend.Engine, error) {
	listings, _, err := h.store.ListListings(ctx, &store.ListingQuery{Limit: maxPageSize})
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	favs, err := h.store.AllFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	events, err := h.store.AllInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}

	activity := make([]recommend.Activity, 0, len(favs)+len(events))
	for _, f := range favs {
		activity = append(activity, recommend.Activity{
			UserID:    f.UserID,
			ListingID: f.ListingID,
			Type:      domain.InteractionFavorite,
		})
	}
	for _, ev := range events {
		activity = append(activity, recommend.Activity{
			UserID:    ev.UserID,
			ListingID: ev.ListingID,
			Type:      ev.Type,
		})
	}
	return recommend.New(listings, activity, h.weights), nil
}
