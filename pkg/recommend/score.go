package recommend

import (
	"math"
	"strings"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Weights defines the relative importance of each content factor.
type Weights struct {
	Brand        float64
	Fuel         float64
	Transmission float64
	Price        float64
	Year         float64
	Mileage      float64
}

// DefaultWeights returns the default content weights.
func DefaultWeights() Weights {
	return Weights{
		Brand:        0.30,
		Fuel:         0.25,
		Transmission: 0.10,
		Price:        0.20,
		Year:         0.10,
		Mileage:      0.05,
	}
}

// Profile summarizes the listings a user engaged with. Each share is the
// fraction of total weight that went to that value.
type Profile struct {
	Brands        map[string]float64
	Fuels         map[domain.FuelType]float64
	Transmissions map[domain.Transmission]float64
	AvgPrice      float64
	AvgYear       float64
	AvgMileage    float64
	Weight        float64
}

// Empty reports whether the profile carries no signal.
func (p *Profile) Empty() bool {
	return p == nil || p.Weight == 0
}

// Breakdown shows per-factor scores.
type Breakdown struct {
	Brand        float64 `json:"brand"`
	Fuel         float64 `json:"fuel"`
	Transmission float64 `json:"transmission"`
	Price        float64 `json:"price"`
	Year         float64 `json:"year"`
	Mileage      float64 `json:"mileage"`
	Total        int     `json:"total"`
}

// Score rates how well a listing fits the profile on a 0-100 scale.
func Score(l *domain.Listing, p *Profile, w Weights) Breakdown {
	if p.Empty() {
		return Breakdown{}
	}

	b := Breakdown{
		Brand:        shareScore(p.Brands[strings.ToLower(l.Brand)]),
		Fuel:         shareScore(p.Fuels[l.FuelType]),
		Transmission: shareScore(p.Transmissions[l.Transmission]),
		Price:        closeness(float64(l.Price), p.AvgPrice, 0.5),
		Year:         yearScore(l.YearOfManufacture, p.AvgYear),
		Mileage:      closeness(float64(l.Mileage), p.AvgMileage, 1),
	}

	total := b.Brand*w.Brand +
		b.Fuel*w.Fuel +
		b.Transmission*w.Transmission +
		b.Price*w.Price +
		b.Year*w.Year +
		b.Mileage*w.Mileage

	b.Total = int(math.Round(total))
	b.Total = max(0, min(100, b.Total))
	return b
}

// shareScore maps a preference share to a score. Values never seen still
// score 30 so that unseen brands are not ruled out.
func shareScore(share float64) float64 {
	if share <= 0 {
		return 30
	}
	return 30 + 70*math.Min(share, 1)
}

// closeness scores 100 for v == ref, falling linearly to 0 once the
// relative gap reaches tolerance.
func closeness(v, ref, tolerance float64) float64 {
	if ref <= 0 {
		return 50
	}
	gap := math.Abs(v-ref) / ref
	return math.Max(0, 100*(1-gap/tolerance))
}

func yearScore(year int, avg float64) float64 {
	if avg == 0 {
		return 50
	}
	gap := math.Abs(float64(year) - avg)
	switch {
	case gap <= 1:
		return 100
	case gap <= 3:
		return 80
	case gap <= 5:
		return 60
	case gap <= 10:
		return 30
	default:
		return 0
	}
}
