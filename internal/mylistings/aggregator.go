// Package mylistings collects every listing the signed-in user owns and
// paginates the result locally.
package mylistings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/auto-marketplace/internal/metrics"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const (
	// DefaultPageSize is both the server page size requested and the local
	// page size.
	DefaultPageSize = 10
	// DefaultFallbackLimit is the limit sent when the server does not
	// paginate.
	DefaultFallbackLimit = 1000
)

// Stop reasons recorded on a Collection.
const (
	StopNoNext    = "no_next"
	StopEmptyPage = "empty_page"
	StopBadPage   = "unexpected_page"
	StopError     = "error"
	StopFallback  = "fallback"
)

// ErrUnexpectedShape is returned when neither the paginated nor the
// fallback response carries a listing array.
var ErrUnexpectedShape = errors.New("unexpected my-listings payload")

// PageFetcher fetches one raw my-listings response. A zero page or limit is
// left off the request.
type PageFetcher interface {
	MyListings(ctx context.Context, page, limit int) (json.RawMessage, error)
}

// Aggregator walks the my-listings pages sequentially.
type Aggregator struct {
	api           PageFetcher
	pageSize      int
	fallbackLimit int
	onFirstPage   func(*Collection)
	log           *slog.Logger
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithPageSize overrides the default page size.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithFallbackLimit overrides the limit used for the unpaginated request.
func WithFallbackLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.fallbackLimit = n
		}
	}
}

// WithOnFirstPage registers a callback that receives a provisional
// collection as soon as page 1 arrives, before the remaining pages load.
func WithOnFirstPage(fn func(*Collection)) Option {
	return func(a *Aggregator) {
		a.onFirstPage = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.log = logger.Component(l, "my-listings")
	}
}

// New creates an Aggregator.
func New(api PageFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		api:           api,
		pageSize:      DefaultPageSize,
		fallbackLimit: DefaultFallbackLimit,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// pageResponse is the paginated shape. Results stays raw so that a missing
// or non-array results field can be told apart from an empty one.
type pageResponse struct {
	Results json.RawMessage `json:"results"`
	Next    *string         `json:"next"`
	Count   int             `json:"count"`
}

// Aggregate fetches every page in server order. On a fetch failure it stops
// and returns what page-complete data it has together with the error; the
// collection is never nil.
func (a *Aggregator) Aggregate(ctx context.Context) (*Collection, error) {
	coll := &Collection{PageSize: a.pageSize}

	raw, err := a.api.MyListings(ctx, 1, a.pageSize)
	if err != nil {
		return a.fail(coll, 1, err)
	}

	first, ok := decodePage(raw)
	if !ok {
		return a.fallback(ctx, coll)
	}

	coll.Items = append(coll.Items, first.items...)
	coll.ServerCount = first.Count
	coll.PagesFetched = 1
	metrics.ListingPagesFetchedTotal.Inc()

	if a.onFirstPage != nil {
		snapshot := *coll
		snapshot.Items = append([]domain.Listing(nil), coll.Items...)
		snapshot.Provisional = true
		a.onFirstPage(&snapshot)
	}

	more := first.Next != nil && len(first.items) > 0
	switch {
	case first.Next == nil:
		coll.StoppedAt = StopNoNext
	case len(first.items) == 0:
		coll.StoppedAt = StopEmptyPage
	}

	for page := 2; more; page++ {
		raw, err := a.api.MyListings(ctx, page, a.pageSize)
		if err != nil {
			return a.fail(coll, page, err)
		}

		resp, ok := decodePage(raw)
		if !ok {
			a.log.Warn("unexpected page shape, stopping", "page", page)
			coll.StoppedAt = StopBadPage
			break
		}
		if len(resp.items) == 0 {
			coll.StoppedAt = StopEmptyPage
			break
		}

		coll.Items = append(coll.Items, resp.items...)
		coll.PagesFetched++
		metrics.ListingPagesFetchedTotal.Inc()

		more = resp.Next != nil
		if !more {
			coll.StoppedAt = StopNoNext
		}
	}

	a.log.Debug("my listings aggregated",
		"items", len(coll.Items),
		"pages", coll.PagesFetched,
		"stopped_at", coll.StoppedAt,
	)
	return coll, nil
}

// fallback requests everything in one call and accepts a bare array.
func (a *Aggregator) fallback(ctx context.Context, coll *Collection) (*Collection, error) {
	a.log.Info("paginated shape not found, requesting all listings", "limit", a.fallbackLimit)

	raw, err := a.api.MyListings(ctx, 0, a.fallbackLimit)
	if err != nil {
		return a.fail(coll, 0, err)
	}

	items, ok := decodeArray(raw)
	if !ok {
		metrics.AggregationFailuresTotal.Inc()
		a.log.Error("my listings response is not an array")
		coll.StoppedAt = StopError
		return coll, ErrUnexpectedShape
	}

	coll.Items = items
	coll.PagesFetched = 1
	coll.StoppedAt = StopFallback
	metrics.ListingPagesFetchedTotal.Inc()
	return coll, nil
}

func (a *Aggregator) fail(coll *Collection, page int, err error) (*Collection, error) {
	metrics.AggregationFailuresTotal.Inc()
	a.log.Error("fetching my listings", "page", page, "kept", len(coll.Items), "err", err)
	coll.StoppedAt = StopError
	return coll, fmt.Errorf("fetching my listings page %d: %w", page, err)
}

type decodedPage struct {
	pageResponse
	items []domain.Listing
}

// decodePage accepts only an object whose results field is an array.
func decodePage(raw json.RawMessage) (*decodedPage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var resp pageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	items, ok := decodeArray(resp.Results)
	if !ok {
		return nil, false
	}
	return &decodedPage{pageResponse: resp, items: items}, true
}

func decodeArray(raw json.RawMessage) ([]domain.Listing, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []domain.Listing
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []domain.Listing{}
	}
	return items, true
}
