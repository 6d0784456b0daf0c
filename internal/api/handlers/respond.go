package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const (
	defaultPageSize = 10
	maxPageSize     = 1000
)

// bearer is the security requirement of authenticated operations.
var bearer = []map[string][]string{{"bearer": {}}}

// Page is the paginated envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Pager reads the page and limit query parameters and keeps the request
// URL for the next and previous links.
type Pager struct {
	Page  int `query:"page"  doc:"Page number, 1-based"`
	Limit int `query:"limit" doc:"Page size (default 10, at most 1000)"`

	link url.URL
}

// Resolve clamps page and limit and records the request URL.
func (p *Pager) Resolve(ctx huma.Context) []error {
	p.link = ctx.URL()
	p.link.Host = ctx.Host()
	p.link.Scheme = "http"
	if ctx.TLS() != nil {
		p.link.Scheme = "https"
	}

	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	p.Limit = min(p.Limit, maxPageSize)
	return nil
}

// Offset is the index of the first item on the page.
func (p *Pager) Offset() int {
	return (p.Page - 1) * p.Limit
}

// pageLink returns the request URL with page replaced.
func (p *Pager) pageLink(page int) *string {
	u := p.link
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

func (p *Pager) paginate(items []domain.Listing, total int) Page[domain.Listing] {
	out := Page[domain.Listing]{Count: total, Results: items}
	if out.Results == nil {
		out.Results = []domain.Listing{}
	}
	if p.Page*p.Limit < total {
		out.Next = p.pageLink(p.Page + 1)
	}
	if p.Page > 1 {
		out.Previous = p.pageLink(p.Page - 1)
	}
	return out
}

// storeError maps store sentinels to responses.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apierror.NotFound()
	case errors.Is(err, store.ErrConflict):
		return apierror.Detail(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// parseID reads a positive integer path id. Anything else is a 404.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.NotFound()
	}
	return id, nil
}
