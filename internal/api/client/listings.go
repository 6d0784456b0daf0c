package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// ListListingsParams defines query parameters for browsing listings.
type ListListingsParams struct {
	Search       string
	Brand        string
	Model        string
	FuelType     domain.FuelType
	Transmission domain.Transmission
	DriveType    domain.DriveType
	Condition    domain.Condition
	MinPrice     int
	MaxPrice     int
	MinYear      int
	MaxYear      int
	MaxMileage   int
	Ordering     string // price, -price, mileage, year_of_manufacture, created_at
	Page         int
	Limit        int
}

func (p *ListListingsParams) values() url.Values {
	q := url.Values{}
	setStr := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	setInt := func(k string, v int) {
		if v > 0 {
			q.Set(k, strconv.Itoa(v))
		}
	}
	setStr("search", p.Search)
	setStr("brand", p.Brand)
	setStr("model__icontains", p.Model)
	setStr("fuel_type", string(p.FuelType))
	setStr("transmission", string(p.Transmission))
	setStr("drive_type", string(p.DriveType))
	setStr("condition_state", string(p.Condition))
	setInt("price__gte", p.MinPrice)
	setInt("price__lte", p.MaxPrice)
	setInt("year_of_manufacture__gte", p.MinYear)
	setInt("year_of_manufacture__lte", p.MaxYear)
	setInt("mileage__lte", p.MaxMileage)
	setStr("ordering", p.Ordering)
	setInt("page", p.Page)
	setInt("limit", p.Limit)
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func listingPath(id int64) string {
	return fmt.Sprintf("/listings/cars/%d/", id)
}

// ListListings returns one page of public listings matching params.
func (c *Client) ListListings(
	ctx context.Context,
	params *ListListingsParams,
) (*domain.ListingPage, error) {
	if params == nil {
		params = &ListListingsParams{}
	}
	var page domain.ListingPage
	if err := c.get(ctx, withQuery("/listings/cars/", params.values()), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetListing returns a single listing by ID.
func (c *Client) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	var l domain.Listing
	if err := c.get(ctx, listingPath(id), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateListing submits a new listing. Images, when given, are uploaded in
// the same multipart request; the first becomes the main image.
func (c *Client) CreateListing(
	ctx context.Context,
	in *domain.ListingInput,
	images ...Upload,
) (*domain.Listing, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	var body any = in
	if len(images) > 0 {
		mb, err := newMultipartBody(in, "images", images, nil)
		if err != nil {
			return nil, err
		}
		body = mb
	}

	var created domain.Listing
	if err := c.post(ctx, "/listings/cars/", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateListing replaces the listing's fields. newImages are appended and
// the image IDs in deleteImages are removed.
func (c *Client) UpdateListing(
	ctx context.Context,
	id int64,
	in *domain.ListingInput,
	newImages []Upload,
	deleteImages []int64,
) (*domain.Listing, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	var body any = in
	if len(newImages) > 0 || len(deleteImages) > 0 {
		extra := map[string]string{}
		if len(deleteImages) > 0 {
			data, err := json.Marshal(deleteImages)
			if err != nil {
				return nil, fmt.Errorf("encoding images_to_delete: %w", err)
			}
			extra["images_to_delete"] = string(data)
		}
		mb, err := newMultipartBody(in, "new_images", newImages, extra)
		if err != nil {
			return nil, err
		}
		body = mb
	}

	var updated domain.Listing
	if err := c.put(ctx, listingPath(id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteListing deletes a listing owned by the caller.
func (c *Client) DeleteListing(ctx context.Context, id int64) error {
	if err := c.requireToken(); err != nil {
		return err
	}
	return c.del(ctx, listingPath(id), nil)
}

// MyListings fetches the caller's own listings. The raw payload is returned
// because the endpoint answers either a page object or a bare array
// depending on pagination; page or limit of zero are omitted.
func (c *Client) MyListings(ctx context.Context, page, limit int) (json.RawMessage, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage
	if err := c.get(ctx, withQuery("/listings/cars/my_listings/", q), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// UserListings returns the public listings of another user.
func (c *Client) UserListings(ctx context.Context, userID int64) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := c.get(ctx, fmt.Sprintf("/listings/user/%d/", userID), &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// SimilarListings returns listings similar to the given one.
func (c *Client) SimilarListings(ctx context.Context, id int64) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := c.get(ctx, fmt.Sprintf("/listings/cars/%d/similar_listings/", id), &listings); err != nil {
		return nil, err
	}
	return listings, nil
}
