// Package recommend ranks car listings for a user from favorites and
// recorded interactions. Three algorithms are available: content-based,
// collaborative, and a hybrid that interleaves both. Users without any
// activity get the most popular listings.
package recommend

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Algorithm names.
const (
	Collaborative = "collaborative"
	Content       = "content"
	Hybrid        = "hybrid"
)

const (
	// Limit caps every result.
	Limit = 12
	// minCollaborative is the activity needed before collaborative
	// filtering is attempted.
	minCollaborative = 10
	neighbors        = 5
)

// ErrUnknownAlgorithm is returned for an algorithm name not listed above.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Activity is one user signal on a listing. Favorites are reported with
// type "favorite".
type Activity struct {
	UserID    int64
	ListingID int64
	Type      string
}

// typeWeight is how strongly an activity type expresses interest.
func typeWeight(t string) float64 {
	switch t {
	case domain.InteractionFavorite:
		return 3
	case domain.InteractionContact:
		return 2
	case domain.InteractionView, domain.InteractionClick:
		return 1
	default:
		return 0
	}
}

// Engine ranks listings over a snapshot of the marketplace.
type Engine struct {
	listings map[int64]*domain.Listing
	order    []int64
	activity []Activity
	weights  Weights
}

// New builds an Engine. Listings are expected newest first; ties in every
// ranking keep that order.
func New(listings []domain.Listing, activity []Activity, w Weights) *Engine {
	e := &Engine{
		listings: make(map[int64]*domain.Listing, len(listings)),
		activity: activity,
		weights:  w,
	}
	for i := range listings {
		e.listings[listings[i].ID] = &listings[i]
		e.order = append(e.order, listings[i].ID)
	}
	return e
}

// ForYou returns recommendations with the named algorithm, defaulting to
// hybrid. Users without activity get popular listings.
func (e *Engine) ForYou(userID int64, algorithm string) []domain.Listing {
	if len(e.userScores(userID)) == 0 {
		return e.Popular(userID, Limit)
	}
	switch algorithm {
	case Collaborative:
		return e.Collaborative(userID, Limit)
	case Content:
		return e.Content(userID, Limit)
	default:
		return e.Hybrid(userID, Limit)
	}
}

// ByAlgorithm runs one named algorithm.
func (e *Engine) ByAlgorithm(userID int64, algorithm string) ([]domain.Listing, error) {
	switch algorithm {
	case Collaborative:
		return e.Collaborative(userID, Limit), nil
	case Content:
		return e.Content(userID, Limit), nil
	case Hybrid:
		return e.Hybrid(userID, Limit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// Popular ranks listings by interactions plus twice their favorites,
// excluding the user's own.
func (e *Engine) Popular(userID int64, limit int) []domain.Listing {
	popularity := make(map[int64]int)
	for _, a := range e.activity {
		if a.Type == domain.InteractionFavorite {
			popularity[a.ListingID] += 2
		} else {
			popularity[a.ListingID]++
		}
	}

	ids := e.candidates(userID, nil)
	slices.SortStableFunc(ids, func(a, b int64) int {
		return cmp.Compare(popularity[b], popularity[a])
	})
	return e.take(ids, limit)
}

// Content ranks listings the user has not engaged with by their fit to
// the user's profile.
func (e *Engine) Content(userID int64, limit int) []domain.Listing {
	seen := e.userScores(userID)
	profile := e.profile(seen)
	if profile.Empty() {
		return e.Popular(userID, limit)
	}

	ids := e.candidates(userID, seen)
	scores := make(map[int64]int, len(ids))
	for _, id := range ids {
		scores[id] = Score(e.listings[id], profile, e.weights).Total
	}
	slices.SortStableFunc(ids, func(a, b int64) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return e.take(ids, limit)
}

// Collaborative ranks listings engaged with by the users most similar to
// this one. Sparse data falls back to content ranking, and a short result
// is filled from it.
func (e *Engine) Collaborative(userID int64, limit int) []domain.Listing {
	if len(e.activity) < minCollaborative {
		return e.Content(userID, limit)
	}

	mine := e.userScores(userID)
	if len(mine) == 0 {
		return e.Content(userID, limit)
	}

	type neighbor struct {
		id  int64
		sim float64
	}
	var peers []neighbor
	for other, vec := range e.allScores() {
		if other == userID {
			continue
		}
		if sim := cosine(mine, vec); sim > 0 {
			peers = append(peers, neighbor{other, sim})
		}
	}
	slices.SortFunc(peers, func(a, b neighbor) int {
		if c := cmp.Compare(b.sim, a.sim); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	peers = peers[:min(len(peers), neighbors)]

	all := e.allScores()
	weighted := make(map[int64]float64)
	for _, p := range peers {
		for listingID, s := range all[p.id] {
			weighted[listingID] += s * p.sim
		}
	}

	ids := slices.DeleteFunc(e.candidates(userID, mine), func(id int64) bool {
		return weighted[id] == 0
	})
	slices.SortStableFunc(ids, func(a, b int64) int {
		return cmp.Compare(weighted[b], weighted[a])
	})
	out := e.take(ids, limit)
	if len(out) < limit {
		out = merge(limit, out, e.Content(userID, limit))
	}
	return out
}

// Hybrid interleaves collaborative and content results.
func (e *Engine) Hybrid(userID int64, limit int) []domain.Listing {
	collab := e.Collaborative(userID, limit)
	content := e.Content(userID, limit)

	out := make([]domain.Listing, 0, limit)
	seen := make(map[int64]bool)
	add := func(l domain.Listing) {
		if len(out) < limit && !seen[l.ID] && !e.ownedBy(l.ID, userID) {
			seen[l.ID] = true
			out = append(out, l)
		}
	}
	for i := 0; i < max(len(collab), len(content)); i++ {
		if i < len(collab) {
			add(collab[i])
		}
		if i < len(content) {
			add(content[i])
		}
	}
	if len(out) == 0 {
		return e.Popular(userID, limit)
	}
	return out
}

// userScores sums the activity weight per listing for one user. A
// favorite counts once however often it was recorded.
func (e *Engine) userScores(userID int64) map[int64]float64 {
	return e.allScores()[userID]
}

func (e *Engine) allScores() map[int64]map[int64]float64 {
	out := make(map[int64]map[int64]float64)
	favorited := make(map[[2]int64]bool)
	for _, a := range e.activity {
		if _, ok := e.listings[a.ListingID]; !ok {
			continue
		}
		w := typeWeight(a.Type)
		if w == 0 {
			continue
		}
		if a.Type == domain.InteractionFavorite {
			key := [2]int64{a.UserID, a.ListingID}
			if favorited[key] {
				continue
			}
			favorited[key] = true
		}
		if out[a.UserID] == nil {
			out[a.UserID] = make(map[int64]float64)
		}
		out[a.UserID][a.ListingID] += w
	}
	return out
}

func (e *Engine) profile(scores map[int64]float64) *Profile {
	p := &Profile{
		Brands:        make(map[string]float64),
		Fuels:         make(map[domain.FuelType]float64),
		Transmissions: make(map[domain.Transmission]float64),
	}
	for id, w := range scores {
		l := e.listings[id]
		p.Weight += w
		p.Brands[strings.ToLower(l.Brand)] += w
		p.Fuels[l.FuelType] += w
		p.Transmissions[l.Transmission] += w
		p.AvgPrice += float64(l.Price) * w
		p.AvgYear += float64(l.YearOfManufacture) * w
		p.AvgMileage += float64(l.Mileage) * w
	}
	if p.Weight == 0 {
		return p
	}
	for k := range p.Brands {
		p.Brands[k] /= p.Weight
	}
	for k := range p.Fuels {
		p.Fuels[k] /= p.Weight
	}
	for k := range p.Transmissions {
		p.Transmissions[k] /= p.Weight
	}
	p.AvgPrice /= p.Weight
	p.AvgYear /= p.Weight
	p.AvgMileage /= p.Weight
	return p
}

// candidates lists, in snapshot order, the listings not owned by the user
// and not in exclude.
func (e *Engine) candidates(userID int64, exclude map[int64]float64) []int64 {
	ids := make([]int64, 0, len(e.order))
	for _, id := range e.order {
		if e.ownedBy(id, userID) {
			continue
		}
		if _, ok := exclude[id]; ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) ownedBy(listingID, userID int64) bool {
	l := e.listings[listingID]
	return l != nil && l.User != nil && l.User.ID == userID
}

func (e *Engine) take(ids []int64, limit int) []domain.Listing {
	out := make([]domain.Listing, 0, min(len(ids), limit))
	for _, id := range ids[:min(len(ids), limit)] {
		out = append(out, *e.listings[id])
	}
	return out
}

// merge appends items from more that are not yet in base, up to limit.
func merge(limit int, base, more []domain.Listing) []domain.Listing {
	seen := make(map[int64]bool, len(base))
	for _, l := range base {
		seen[l.ID] = true
	}
	for _, l := range more {
		if len(base) >= limit {
			break
		}
		if !seen[l.ID] {
			seen[l.ID] = true
			base = append(base, l)
		}
	}
	return base
}

func cosine(a, b map[int64]float64) float64 {
	var dot, na, nb float64
	for k, v := range a {
		na += v * v
		dot += v * b[k]
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
