package store

import (
	"cmp"
	"slices"
	"strings"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const (
	defaultLimit = 10
	maxLimit     = 1000

	orderByCreated = "-created_at"
)

// validOrderBy lists the accepted ordering keys. A leading "-" sorts
// descending.
var validOrderBy = map[string]struct{}{
	"price":                {},
	"-price":               {},
	"mileage":              {},
	"-mileage":             {},
	"year_of_manufacture":  {},
	"-year_of_manufacture": {},
	"created_at":           {},
	"-created_at":          {},
}

// ListingQuery defines optional filters for listing queries. Nil and zero
// fields do not filter.
type ListingQuery struct {
	Search       string
	Brand        string
	Model        string
	FuelType     string
	Transmission string
	DriveType    string
	Condition    string
	MinPrice     *int
	MaxPrice     *int
	MinYear      *int
	MaxYear      *int
	MaxMileage   *int
	OwnerID      *int64
	ExcludeID    *int64
	Limit        int // default 10
	Offset       int
	OrderBy      string // default "-created_at"
}

// Normalize clamps the limit and offset and replaces an unknown ordering
// with the default.
func (q *ListingQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)
	q.Offset = max(q.Offset, 0)
	if _, ok := validOrderBy[q.OrderBy]; !ok {
		q.OrderBy = orderByCreated
	}
}

// Matches reports whether l passes every filter.
func (q *ListingQuery) Matches(l *domain.Listing) bool {
	switch {
	case q.Brand != "" && !strings.EqualFold(l.Brand, q.Brand):
		return false
	case q.Model != "" && !containsFold(l.Model, q.Model):
		return false
	case q.FuelType != "" && string(l.FuelType) != q.FuelType:
		return false
	case q.Transmission != "" && string(l.Transmission) != q.Transmission:
		return false
	case q.DriveType != "" && string(l.DriveType) != q.DriveType:
		return false
	case q.Condition != "" && string(l.ConditionState) != q.Condition:
		return false
	case q.MinPrice != nil && l.Price < *q.MinPrice:
		return false
	case q.MaxPrice != nil && l.Price > *q.MaxPrice:
		return false
	case q.MinYear != nil && l.YearOfManufacture < *q.MinYear:
		return false
	case q.MaxYear != nil && l.YearOfManufacture > *q.MaxYear:
		return false
	case q.MaxMileage != nil && l.Mileage > *q.MaxMileage:
		return false
	case q.OwnerID != nil && (l.User == nil || l.User.ID != *q.OwnerID):
		return false
	case q.ExcludeID != nil && l.ID == *q.ExcludeID:
		return false
	}

	if q.Search != "" {
		hay := l.Title + " " + l.Brand + " " + l.Model + " " + l.Description
		if !containsFold(hay, q.Search) {
			return false
		}
	}
	return true
}

// Sort orders listings in place by q.OrderBy, ties broken by id.
func (q *ListingQuery) Sort(ls []domain.Listing) {
	key := strings.TrimPrefix(q.OrderBy, "-")
	desc := strings.HasPrefix(q.OrderBy, "-")

	slices.SortStableFunc(ls, func(a, b domain.Listing) int {
		var c int
		switch key {
		case "price":
			c = cmp.Compare(a.Price, b.Price)
		case "mileage":
			c = cmp.Compare(a.Mileage, b.Mileage)
		case "year_of_manufacture":
			c = cmp.Compare(a.YearOfManufacture, b.YearOfManufacture)
		default:
			c = compareCreated(&a, &b)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareCreated(a, b *domain.Listing) int {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return 0
	case a.CreatedAt == nil:
		return -1
	case b.CreatedAt == nil:
		return 1
	}
	return a.CreatedAt.Compare(*b.CreatedAt)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
