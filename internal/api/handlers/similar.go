package handlers

import (
	"cmp"
	"slices"
	"strings"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

const (
	similarLimit     = 6
	similarMinimum   = 3
	similarPriceBand = 0.3
)

// similarListings ranks candidates sharing the reference brand by model,
// fuel and year closeness. When fewer than three match, listings priced
// within 30% of the reference fill the result.
func similarListings(ref *domain.Listing, candidates []domain.Listing) []domain.Listing {
	type scored struct {
		l     domain.Listing
		score int
	}

	var ranked []scored
	for _, l := range candidates {
		if l.ID == ref.ID || !strings.EqualFold(l.Brand, ref.Brand) {
			continue
		}
		ranked = append(ranked, scored{l: l, score: similarity(ref, &l)})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]domain.Listing, 0, similarLimit)
	seen := map[int64]bool{ref.ID: true}
	for _, s := range ranked[:min(len(ranked), similarLimit)] {
		out = append(out, s.l)
		seen[s.l.ID] = true
	}
	if len(out) >= similarMinimum {
		return out
	}

	lo := float64(ref.Price) * (1 - similarPriceBand)
	hi := float64(ref.Price) * (1 + similarPriceBand)
	for _, l := range candidates {
		if len(out) == similarLimit {
			break
		}
		p := float64(l.Price)
		if seen[l.ID] || p < lo || p > hi {
			continue
		}
		out = append(out, l)
		seen[l.ID] = true
	}
	return out
}

func similarity(ref, l *domain.Listing) int {
	score := 100
	if strings.EqualFold(l.Model, ref.Model) {
		score += 50
	}
	if l.FuelType == ref.FuelType {
		score += 25
	}
	gap := l.YearOfManufacture - ref.YearOfManufacture
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap == 0:
		score += 25
	case gap <= 2:
		score += 20
	case gap <= 5:
		score += 15
	case gap <= 10:
		score += 10
	}
	return score
}
