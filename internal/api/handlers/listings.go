package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const (
	statusAdded   = "added to favorites"
	statusRemoved = "removed from favorites"

	mediaPrefix = "/media/car_images/"

	maxUploadBytes = 32 << 20
)

// ListingsHandler serves the car listing endpoints.
type ListingsHandler struct {
	store         store.Store
	rawMyListings bool
	log           *slog.Logger
}

// ListingsOption configures a ListingsHandler.
type ListingsOption func(*ListingsHandler)

// WithRawMyListings makes my_listings answer a bare array instead of a
// page object.
func WithRawMyListings(raw bool) ListingsOption {
	return func(h *ListingsHandler) {
		h.rawMyListings = raw
	}
}

// WithListingsLogger sets the logger.
func WithListingsLogger(l *slog.Logger) ListingsOption {
	return func(h *ListingsHandler) {
		h.log = logger.Component(l, "listings")
	}
}

// NewListingsHandler creates a new ListingsHandler.
func NewListingsHandler(s store.Store, opts ...ListingsOption) *ListingsHandler {
	h := &ListingsHandler{store: s, log: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// --- Input/Output types ---

// ListListingsInput holds the listing filters. Numeric bounds are strings
// so an absent bound differs from zero.
type ListListingsInput struct {
	Pager

	Search       string `query:"search"                   doc:"Match title, brand, model or description"`
	Brand        string `query:"brand"                    doc:"Exact brand, case-insensitive"`
	Model        string `query:"model__icontains"         doc:"Model substring"`
	FuelType     string `query:"fuel_type"                doc:"Fuel type"                  enum:"benzina,diesel,electric,hibrid_benzina,hibrid_diesel,GPL,altele,"`
	Transmission string `query:"transmission"             doc:"Gearbox"                    enum:"manuala,automata,semi-automata,"`
	DriveType    string `query:"drive_type"               doc:"Drive type"                 enum:"fata,spate,4x4,"`
	Condition    string `query:"condition_state"          doc:"Condition"                  enum:"nou,utilizat,avariat,"`
	MinPrice     string `query:"price__gte"               doc:"Minimum price"`
	MaxPrice     string `query:"price__lte"               doc:"Maximum price"`
	MinYear      string `query:"year_of_manufacture__gte" doc:"Earliest year of manufacture"`
	MaxYear      string `query:"year_of_manufacture__lte" doc:"Latest year of manufacture"`
	MaxMileage   string `query:"mileage__lte"             doc:"Maximum mileage"`
	Ordering     string `query:"ordering"                 doc:"Sort field, prefixed with - for descending"`
}

// ListingPageOutput is one page of listings.
type ListingPageOutput struct {
	Body Page[domain.Listing]
}

// ListingsOutput is a bare listing array.
type ListingsOutput struct {
	Body []domain.Listing
}

// ListingIDInput addresses one listing.
type ListingIDInput struct {
	ID string `path:"id" doc:"Listing id"`
}

// ListingOutput is a single listing.
type ListingOutput struct {
	Body domain.Listing
}

// WriteListingInput is a create or update body: JSON, or a multipart form
// whose "images" (create) or "new_images" (update) parts are uploads and
// whose "images_to_delete" field is a JSON id array.
type WriteListingInput struct {
	ID          string `path:"id"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// CreateListingInput is WriteListingInput without a path id.
type CreateListingInput struct {
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// MyListingsInput pages the caller's listings.
type MyListingsInput struct {
	Pager
}

// MyListingsOutput is a page object, or a bare array when the server runs
// in raw mode.
type MyListingsOutput struct {
	Body any
}

// ToggleFavoriteOutput reports whether the toggle added or removed.
type ToggleFavoriteOutput struct {
	Status int
	Body   domain.FavoriteToggle
}

// --- Handlers ---

// List returns one page of listings matching the query filters.
func (h *ListingsHandler) List(ctx context.Context, in *ListListingsInput) (*ListingPageOutput, error) {
	q, err := in.query()
	if err != nil {
		return nil, err
	}
	q.Limit = in.Limit
	q.Offset = in.Offset()

	items, total, err := h.store.ListListings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	if in.Page > 1 && len(items) == 0 {
		return nil, apierror.Detail(http.StatusNotFound, "Invalid page.")
	}
	if err := h.markFavorites(ctx, items); err != nil {
		return nil, err
	}
	return &ListingPageOutput{Body: in.paginate(items, total)}, nil
}

// Get returns a single listing.
func (h *ListingsHandler) Get(ctx context.Context, in *ListingIDInput) (*ListingOutput, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}
	l, err := h.store.GetListing(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	one := []domain.Listing{*l}
	if err := h.markFavorites(ctx, one); err != nil {
		return nil, err
	}
	return &ListingOutput{Body: one[0]}, nil
}

// Create stores a new listing owned by the caller.
func (h *ListingsHandler) Create(ctx context.Context, in *CreateListingInput) (*ListingOutput, error) {
	userID, _ := middleware.UserID(ctx)

	li, form, err := decodeListing(in.ContentType, in.RawBody)
	if err != nil {
		return nil, err
	}

	owner, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	l := &domain.Listing{User: owner}
	applyInput(l, li)
	if form != nil {
		l.Images = appendUploads(l.Images, form.File["images"])
	}

	if err := h.store.CreateListing(ctx, l); err != nil {
		return nil, storeError(err)
	}
	h.log.Info("listing created", "id", l.ID, "user_id", userID, "images", len(l.Images))
	return &ListingOutput{Body: *l}, nil
}

// Update replaces a listing owned by the caller.
func (h *ListingsHandler) Update(ctx context.Context, in *WriteListingInput) (*ListingOutput, error) {
	l, err := h.owned(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	li, form, err := decodeListing(in.ContentType, in.RawBody)
	if err != nil {
		return nil, err
	}

	applyInput(l, li)
	if form != nil {
		if ids := form.Value["images_to_delete"]; len(ids) > 0 {
			drop, err := parseIDList(ids[0])
			if err != nil {
				return nil, apierror.Detail(http.StatusBadRequest, "images_to_delete must be a JSON array of ids")
			}
			l.Images = deleteImages(l.Images, drop)
		}
		l.Images = appendUploads(l.Images, form.File["new_images"])
	}

	if err := h.store.UpdateListing(ctx, l); err != nil {
		return nil, storeError(err)
	}
	return &ListingOutput{Body: *l}, nil
}

// Delete removes a listing owned by the caller.
func (h *ListingsHandler) Delete(ctx context.Context, in *ListingIDInput) (*struct{}, error) {
	l, err := h.owned(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteListing(ctx, l.ID); err != nil {
		return nil, storeError(err)
	}
	return nil, nil
}

// owned loads the listing and checks the caller owns it.
func (h *ListingsHandler) owned(ctx context.Context, rawID string) (*domain.Listing, error) {
	userID, _ := middleware.UserID(ctx)
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	l, err := h.store.GetListing(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if l.User == nil || l.User.ID != userID {
		return nil, apierror.Forbidden()
	}
	return l, nil
}

// MyListings returns the caller's listings, newest first.
func (h *ListingsHandler) MyListings(ctx context.Context, in *MyListingsInput) (*MyListingsOutput, error) {
	userID, _ := middleware.UserID(ctx)
	q := &store.ListingQuery{OwnerID: &userID}

	if h.rawMyListings {
		q.Limit = maxPageSize
	} else {
		q.Limit = in.Limit
		q.Offset = in.Offset()
	}
	items, total, err := h.store.ListListings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing own listings: %w", err)
	}
	if err := h.markFavorites(ctx, items); err != nil {
		return nil, err
	}

	if h.rawMyListings {
		if items == nil {
			items = []domain.Listing{}
		}
		return &MyListingsOutput{Body: items}, nil
	}
	return &MyListingsOutput{Body: in.paginate(items, total)}, nil
}

// UserListings returns every listing of the path user as a bare array.
func (h *ListingsHandler) UserListings(ctx context.Context, in *ListingIDInput) (*ListingsOutput, error) {
	userID, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}
	items, _, err := h.store.ListListings(ctx, &store.ListingQuery{
		OwnerID: &userID,
		Limit:   maxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing user listings: %w", err)
	}
	if err := h.markFavorites(ctx, items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Listing{}
	}
	return &ListingsOutput{Body: items}, nil
}

// Similar returns up to six listings ranked by likeness to the path
// listing.
func (h *ListingsHandler) Similar(ctx context.Context, in *ListingIDInput) (*ListingsOutput, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	ref, err := h.store.GetListing(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	all, _, err := h.store.ListListings(ctx, &store.ListingQuery{
		ExcludeID: &id,
		Limit:     maxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	items := similarListings(ref, all)
	if err := h.markFavorites(ctx, items); err != nil {
		return nil, err
	}
	return &ListingsOutput{Body: items}, nil
}

// ToggleFavorite adds or removes the path listing from the caller's
// favorites.
func (h *ListingsHandler) ToggleFavorite(ctx context.Context, in *ListingIDInput) (*ToggleFavoriteOutput, error) {
	userID, _ := middleware.UserID(ctx)
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	added, err := h.store.ToggleFavorite(ctx, userID, id)
	if err != nil {
		return nil, storeError(err)
	}
	if added {
		return &ToggleFavoriteOutput{Status: http.StatusCreated, Body: domain.FavoriteToggle{Status: statusAdded}}, nil
	}
	return &ToggleFavoriteOutput{Status: http.StatusOK, Body: domain.FavoriteToggle{Status: statusRemoved}}, nil
}

// markFavorites sets is_favorite for an authenticated caller. Anonymous
// responses carry no favorite state.
func (h *ListingsHandler) markFavorites(ctx context.Context, items []domain.Listing) error {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		return nil
	}
	favs, err := h.store.ListFavorites(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing favorites: %w", err)
	}
	set := make(map[int64]bool, len(favs))
	for _, f := range favs {
		set[f.ListingID] = true
	}
	for i := range items {
		items[i].SetFavorite(set[items[i].ID])
	}
	return nil
}

// RegisterListingRoutes registers the listing endpoints with the Huma API.
// my_listings is registered ahead of the {id} routes.
func RegisterListingRoutes(api huma.API, h *ListingsHandler) {
	requireAuth := huma.Middlewares{middleware.RequireAuth(api)}
	optionalAuth := huma.Middlewares{middleware.OptionalAuth(api)}

	huma.Register(api, huma.Operation{
		OperationID: "my-listings",
		Method:      http.MethodGet,
		Path:        "/api/listings/cars/my_listings/",
		Summary:     "List the caller's listings",
		Description: "Returns a page object, or a bare array when the server runs with raw my_listings.",
		Tags:        []string{"listings"},
		Security:    bearer,
		Middlewares: requireAuth,
		Errors:      []int{http.StatusUnauthorized},
	}, h.MyListings)

	huma.Register(api, huma.Operation{
		OperationID: "list-listings",
		Method:      http.MethodGet,
		Path:        "/api/listings/cars/",
		Summary:     "List listings",
		Description: "Returns one page of listings with optional filters, search and ordering.",
		Tags:        []string{"listings"},
		Middlewares: optionalAuth,
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "create-listing",
		Method:        http.MethodPost,
		Path:          "/api/listings/cars/",
		Summary:       "Create a listing",
		Description:   "Accepts JSON or a multipart form with \"images\" files.",
		Tags:          []string{"listings"},
		Security:      bearer,
		Middlewares:   requireAuth,
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxUploadBytes,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "get-listing",
		Method:      http.MethodGet,
		Path:        "/api/listings/cars/{id}/",
		Summary:     "Get a listing by ID",
		Tags:        []string{"listings"},
		Middlewares: optionalAuth,
		Errors:      []int{http.StatusNotFound},
	}, h.Get)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		huma.Register(api, huma.Operation{
			OperationID:  strings.ToLower(method) + "-listing",
			Method:       method,
			Path:         "/api/listings/cars/{id}/",
			Summary:      "Update a listing",
			Description:  "Accepts JSON or a multipart form with \"new_images\" files and an \"images_to_delete\" JSON id array.",
			Tags:         []string{"listings"},
			Security:     bearer,
			Middlewares:  requireAuth,
			MaxBodyBytes: maxUploadBytes,
			Errors: []int{
				http.StatusBadRequest, http.StatusUnauthorized,
				http.StatusForbidden, http.StatusNotFound,
			},
		}, h.Update)
	}

	huma.Register(api, huma.Operation{
		OperationID:   "delete-listing",
		Method:        http.MethodDelete,
		Path:          "/api/listings/cars/{id}/",
		Summary:       "Delete a listing",
		Tags:          []string{"listings"},
		Security:      bearer,
		Middlewares:   requireAuth,
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "similar-listings",
		Method:      http.MethodGet,
		Path:        "/api/listings/cars/{id}/similar_listings/",
		Summary:     "List similar listings",
		Description: "Returns up to six listings of the same brand, topped up by price when fewer than three match.",
		Tags:        []string{"listings"},
		Middlewares: optionalAuth,
		Errors:      []int{http.StatusNotFound},
	}, h.Similar)

	huma.Register(api, huma.Operation{
		OperationID: "toggle-favorite",
		Method:      http.MethodPost,
		Path:        "/api/listings/cars/{id}/favorite/",
		Summary:     "Toggle a favorite",
		Description: "Answers 201 when the listing was added and 200 when it was removed.",
		Tags:        []string{"favorites"},
		Security:    bearer,
		Middlewares: requireAuth,
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, h.ToggleFavorite)

	huma.Register(api, huma.Operation{
		OperationID: "user-listings",
		Method:      http.MethodGet,
		Path:        "/api/listings/user/{id}/",
		Summary:     "List a user's listings",
		Tags:        []string{"listings"},
		Middlewares: optionalAuth,
		Errors:      []int{http.StatusNotFound},
	}, h.UserListings)
}

// query maps the filter parameters onto a store query.
func (in *ListListingsInput) query() (*store.ListingQuery, error) {
	q := &store.ListingQuery{
		Search:       in.Search,
		Brand:        in.Brand,
		Model:        in.Model,
		FuelType:     in.FuelType,
		Transmission: in.Transmission,
		DriveType:    in.DriveType,
		Condition:    in.Condition,
		OrderBy:      in.Ordering,
	}
	bounds := []struct {
		key string
		raw string
		dst **int
	}{
		{"price__gte", in.MinPrice, &q.MinPrice},
		{"price__lte", in.MaxPrice, &q.MaxPrice},
		{"year_of_manufacture__gte", in.MinYear, &q.MinYear},
		{"year_of_manufacture__lte", in.MaxYear, &q.MaxYear},
		{"mileage__lte", in.MaxMileage, &q.MaxMileage},
	}
	errs := map[string][]string{}
	for _, b := range bounds {
		if b.raw == "" {
			continue
		}
		n, err := strconv.Atoi(b.raw)
		if err != nil {
			errs[b.key] = []string{"Enter a number."}
			continue
		}
		*b.dst = &n
	}
	if len(errs) > 0 {
		return nil, apierror.Fields(errs)
	}
	return q, nil
}

// numericFields are the listing fields sent as numbers in JSON.
var numericFields = map[string]bool{
	"year_of_manufacture": true,
	"mileage":             true,
	"power":               true,
	"engine_capacity":     true,
	"price":               true,
}

// decodeListing reads a JSON body or a multipart form and validates it.
// The form is returned for multipart requests so the caller can read
// uploads.
func decodeListing(contentType string, raw []byte) (*domain.ListingInput, *multipart.Form, error) {
	mediaType, params, _ := mime.ParseMediaType(contentType)

	var (
		in   domain.ListingInput
		form *multipart.Form
	)
	if mediaType == "multipart/form-data" {
		var err error
		form, err = multipart.NewReader(bytes.NewReader(raw), params["boundary"]).ReadForm(maxUploadBytes)
		if err != nil {
			return nil, nil, apierror.Detail(http.StatusBadRequest, "Multipart form parse error - "+err.Error())
		}
		if err := formInput(form, &in); err != nil {
			return nil, nil, err
		}
	} else if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, apierror.Detail(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}

	if errs := validateInput(&in); len(errs) > 0 {
		return nil, nil, apierror.Fields(errs)
	}
	return &in, form, nil
}

// formInput converts multipart fields to their JSON types and decodes them.
func formInput(form *multipart.Form, in *domain.ListingInput) error {
	fields := make(map[string]any, len(form.Value))
	for k, vs := range form.Value {
		if len(vs) == 0 {
			continue
		}
		v := vs[0]
		switch {
		case k == "features":
			fields[k] = json.RawMessage(v)
		case numericFields[k]:
			n, err := strconv.Atoi(v)
			if err != nil {
				return apierror.Fields(map[string][]string{k: {"A valid integer is required."}})
			}
			fields[k] = n
		default:
			fields[k] = v
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding form fields: %w", err)
	}
	if err := json.Unmarshal(data, in); err != nil {
		return apierror.Detail(http.StatusBadRequest, "invalid form fields: "+err.Error())
	}
	return nil
}

// validateInput returns field errors keyed by field name.
func validateInput(in *domain.ListingInput) map[string][]string {
	const required = "This field is required."
	errs := map[string][]string{}
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = []string{required}
	}
	if strings.TrimSpace(in.Brand) == "" {
		errs["brand"] = []string{required}
	}
	if strings.TrimSpace(in.Model) == "" {
		errs["model"] = []string{required}
	}
	if in.Price <= 0 {
		errs["price"] = []string{"Ensure this value is greater than 0."}
	}
	if in.YearOfManufacture <= 0 {
		errs["year_of_manufacture"] = []string{required}
	}
	return errs
}

func applyInput(l *domain.Listing, in *domain.ListingInput) {
	l.Title = in.Title
	l.Brand = in.Brand
	l.Model = in.Model
	l.YearOfManufacture = in.YearOfManufacture
	l.Mileage = in.Mileage
	l.Power = in.Power
	l.EngineCapacity = in.EngineCapacity
	l.Color = in.Color
	l.ConditionState = in.ConditionState
	l.FuelType = in.FuelType
	l.EmissionStandard = in.EmissionStandard
	l.Transmission = in.Transmission
	l.DriveType = in.DriveType
	l.BodyType = in.BodyType
	l.Location = in.Location
	l.Price = in.Price
	l.Description = in.Description
	l.Features = in.Features
}

// appendUploads records uploaded files as images. The first image of a
// listing without images becomes the main one.
func appendUploads(images []domain.Image, files []*multipart.FileHeader) []domain.Image {
	for _, fh := range files {
		name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
		images = append(images, domain.Image{
			ImagePath: mediaPrefix + uuid.NewString() + "_" + name,
			IsMain:    len(images) == 0,
		})
	}
	return images
}

func deleteImages(images []domain.Image, drop []int64) []domain.Image {
	gone := make(map[int64]bool, len(drop))
	for _, id := range drop {
		gone[id] = true
	}
	out := images[:0]
	for _, img := range images {
		if !gone[img.ID] {
			out = append(out, img)
		}
	}
	if len(out) > 0 && !hasMain(out) {
		out[0].IsMain = true
	}
	return out
}

func hasMain(images []domain.Image) bool {
	for _, img := range images {
		if img.IsMain {
			return true
		}
	}
	return false
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decoding images_to_delete: %w", err)
	}
	return ids, nil
}
