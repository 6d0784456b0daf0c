package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/donaldgifford/auto-marketplace/internal/session"
	"github.com/donaldgifford/auto-marketplace/pkg/loan"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

// favoriteMark renders the favorite flag; "-" when the state is unknown.
func favoriteMark(l *domain.Listing) string {
	switch {
	case l.IsFavorite == nil:
		return "-"
	case *l.IsFavorite:
		return "*"
	default:
		return ""
	}
}

func printListingsTable(w io.Writer, listings []domain.Listing) error {
	tw := newTabWriter(w)
	tw.writef("ID\tTITLE\tPRICE\tYEAR\tMILEAGE\tFUEL\tFAV\n")
	for i := range listings {
		l := &listings[i]
		tw.writef("%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			l.ID,
			truncate(l.Title, 40),
			formatPrice(l.Price),
			l.YearOfManufacture,
			l.Mileage,
			l.FuelType,
			favoriteMark(l),
		)
	}
	return tw.finish()
}

func printListingDetail(w io.Writer, l *domain.Listing) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%d\n", l.ID)
	tw.writef("Title:\t%s\n", l.Title)
	tw.writef("Vehicle:\t%s %s (%d)\n", l.Brand, l.Model, l.YearOfManufacture)
	tw.writef("Price:\t%s\n", formatPrice(l.Price))
	tw.writef("Mileage:\t%d km\n", l.Mileage)
	tw.writef("Engine:\t%d cc, %d hp, %s\n", l.EngineCapacity, l.Power, l.FuelType)
	tw.writef("Gearbox:\t%s, %s\n", l.Transmission, l.DriveType)
	tw.writef("Condition:\t%s\n", l.ConditionState)
	if l.Location != "" {
		tw.writef("Location:\t%s\n", l.Location)
	}
	if l.User != nil {
		tw.writef("Seller:\t%s\n", l.User.DisplayName())
	}
	if img := l.MainImage(); img != "" {
		tw.writef("Image:\t%s (%d total)\n", img, len(l.Images))
	}
	for _, f := range l.Features {
		tw.writef("Feature:\t%s %s\n", f.Name, f.Value)
	}
	tw.writef("Favorite:\t%s\n", favoriteMark(l))
	if l.Description != "" {
		tw.writef("\n%s\n", l.Description)
	}
	return tw.finish()
}

func printUser(w io.Writer, u *domain.User) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%d\n", u.ID)
	tw.writef("Username:\t%s\n", u.Username)
	tw.writef("Name:\t%s\n", u.DisplayName())
	if u.Email != "" {
		tw.writef("Email:\t%s\n", u.Email)
	}
	if u.Phone != "" {
		tw.writef("Phone:\t%s\n", u.Phone)
	}
	return tw.finish()
}

func printSession(w io.Writer, c *session.Credentials) error {
	tw := newTabWriter(w)
	if c.User != nil {
		tw.writef("User:\t%s (%d)\n", c.User.Username, c.User.ID)
	}
	if exp, ok := c.ExpiresAt(); ok {
		tw.writef("Expires:\t%s\n", exp.Local().Format("2006-01-02 15:04:05"))
	} else {
		tw.writef("Expires:\tunknown\n")
	}
	return tw.finish()
}

func printLoan(w io.Writer, r *loan.Result, schedule bool) error {
	tw := newTabWriter(w)
	tw.writef("Loan amount:\t%.2f\n", r.LoanAmount)
	tw.writef("Monthly payment:\t%.2f\n", r.MonthlyPayment)
	tw.writef("Total payment:\t%.2f\n", r.TotalPayment)
	tw.writef("Total interest:\t%.2f\n", r.TotalInterest)
	tw.writef("Down payment:\t%.2f%%\n", r.Summary.DownPaymentPercentage)
	tw.writef("Term:\t%.1f years at %.2f%%\n", r.Summary.LoanTermYears, r.Summary.AnnualInterestRate)
	if schedule {
		tw.writef("\nMONTH\tPAYMENT\tPRINCIPAL\tINTEREST\tREMAINING\n")
		for _, row := range r.PaymentSchedule {
			tw.writef("%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
				row.Month, row.Payment, row.Principal, row.Interest, row.RemainingBalance)
		}
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatPrice renders whole euros with thousands separators.
func formatPrice(p int) string {
	s := strconv.Itoa(p)
	neg := p < 0
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return "€" + s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
