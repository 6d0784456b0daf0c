package handlers

import "github.com/danielgtaylor/huma/v2"

// Set holds the handlers RegisterRoutes mounts.
type Set struct {
	Listings        *ListingsHandler
	Favorites       *FavoritesHandler
	Users           *UsersHandler
	Recommendations *RecommendationsHandler
}

// RegisterRoutes registers every API operation. Static paths come before
// the parameterized paths they overlap.
func RegisterRoutes(api huma.API, h Set) {
	RegisterFavoriteRoutes(api, h.Favorites)
	RegisterListingRoutes(api, h.Listings)
	RegisterCalculatorRoutes(api)
	RegisterUserRoutes(api, h.Users)
	RegisterRecommendationRoutes(api, h.Recommendations)
}
