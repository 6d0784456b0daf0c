// Package loan computes car financing plans using standard annuity
// amortization.
package loan

import (
	"errors"
	"fmt"
	"math"
)

// Defaults applied when a Request leaves a field at zero.
const (
	DefaultTermMonths   = 60
	DefaultInterestRate = 7.5
)

var (
	// ErrPriceRequired is returned when the price is missing or not positive.
	ErrPriceRequired = errors.New("price is required")
	// ErrDownPaymentTooLarge is returned when nothing is left to finance.
	ErrDownPaymentTooLarge = errors.New("down payment must be lower than the price")
	// ErrInvalidTerm is returned for a negative loan term.
	ErrInvalidTerm = errors.New("loan term must be positive")
)

// Request holds the inputs of a loan calculation. InterestRate is the
// annual rate in percent.
type Request struct {
	Price        float64 `json:"price"`
	DownPayment  float64 `json:"down_payment,omitempty"`
	TermMonths   int     `json:"loan_term,omitempty"`
	InterestRate float64 `json:"interest_rate,omitempty"`
}

// PaymentRow is one line of the repayment schedule.
type PaymentRow struct {
	Month            int     `json:"month"`
	Payment          float64 `json:"payment"`
	Principal        float64 `json:"principal"`
	Interest         float64 `json:"interest"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// Summary describes the plan in relative terms.
type Summary struct {
	DownPaymentPercentage float64 `json:"down_payment_percentage"`
	LoanTermYears         float64 `json:"loan_term_years"`
	AnnualInterestRate    float64 `json:"annual_interest_rate"`
}

// Result is a computed financing plan.
type Result struct {
	LoanAmount      float64      `json:"loan_amount"`
	MonthlyPayment  float64      `json:"monthly_payment"`
	TotalPayment    float64      `json:"total_payment"`
	TotalInterest   float64      `json:"total_interest"`
	PaymentSchedule []PaymentRow `json:"payment_schedule"`
	Summary         Summary      `json:"summary"`
}

// WithDefaults returns a copy of r with zero-valued optional fields set.
func (r Request) WithDefaults() Request {
	if r.TermMonths == 0 {
		r.TermMonths = DefaultTermMonths
	}
	if r.InterestRate == 0 {
		r.InterestRate = DefaultInterestRate
	}
	return r
}

// Calculate computes the monthly payment and a condensed repayment schedule.
// The schedule lists the first twelve months, every twelfth month after
// that, and the final month.
func Calculate(req Request) (*Result, error) {
	req = req.WithDefaults()

	if req.Price <= 0 {
		return nil, ErrPriceRequired
	}
	if req.TermMonths < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidTerm, req.TermMonths)
	}

	principal := req.Price - req.DownPayment
	if principal <= 0 {
		return nil, ErrDownPaymentTooLarge
	}

	n := req.TermMonths
	r := req.InterestRate / 100 / 12
	monthly := MonthlyPayment(principal, r, n)
	total := monthly * float64(n)

	schedule := make([]PaymentRow, 0, min(n, 12)+n/12+1)
	balance := principal
	for month := 1; month <= n; month++ {
		interest := balance * r
		principalPart := monthly - interest
		balance -= principalPart

		if month <= 12 || month%12 == 0 || month == n {
			schedule = append(schedule, PaymentRow{
				Month:            month,
				Payment:          round2(monthly),
				Principal:        round2(principalPart),
				Interest:         round2(interest),
				RemainingBalance: round2(math.Max(0, balance)),
			})
		}
	}

	return &Result{
		LoanAmount:      round2(principal),
		MonthlyPayment:  round2(monthly),
		TotalPayment:    round2(total),
		TotalInterest:   round2(total - principal),
		PaymentSchedule: schedule,
		Summary: Summary{
			DownPaymentPercentage: round2(req.DownPayment / req.Price * 100),
			LoanTermYears:         float64(n) / 12,
			AnnualInterestRate:    req.InterestRate,
		},
	}, nil
}

// MonthlyPayment returns the annuity payment for principal p at monthly
// rate r over n months. A zero rate spreads the principal evenly.
func MonthlyPayment(p, r float64, n int) float64 {
	if r == 0 {
		return p / float64(n)
	}
	growth := math.Pow(1+r, float64(n))
	return p * (r * growth) / (growth - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
