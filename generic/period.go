package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The aggregation window for payroll
// =============================================================================

// Period is the inclusive day range shifts are aggregated over. Payroll is
// ALWAYS computed for a period; a shift belongs to the period its start date
// falls in.
//
// Examples:
//   - Calendar month March 2025: Mar 1 - Mar 31
//   - Pay cycle starting on the 16th: Mar 16 - Apr 15
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// MonthPeriod returns the calendar month period.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ParseMonth parses "YYYY-MM" into a calendar month period.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidPeriod, s)
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsInstant reports whether the calendar date of t (in t's location)
// falls inside the period.
func (p Period) ContainsInstant(t time.Time) bool {
	return p.Contains(DateOf(t))
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Days returns the number of days in the period.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Key is a compact stable identifier, used in cache keys and storage.
func (p Period) Key() string {
	return p.Start.String() + ".." + p.End.String()
}

// Label is the human month label when the period is a calendar month.
func (p Period) Label() string {
	if p.Start.Day() == 1 && p.End.Equal(EndOfMonth(p.Start.Year(), p.Start.Month())) {
		return p.Start.Time.Format("2006-01")
	}
	return p.String()
}

// NextPeriod returns the period following this one. Month-aligned periods
// step by calendar month so that 28-31 day lengths stay correct.
func (p Period) NextPeriod() Period {
	if p.isMonthShaped() {
		start := p.Start.AddMonths(1)
		return Period{Start: start, End: start.AddMonths(1).AddDays(-1)}
	}
	newStart := p.End.AddDays(1)
	return Period{Start: newStart, End: newStart.AddDays(DaysBetween(p.Start, p.End))}
}

// PreviousPeriod returns the period before this one.
func (p Period) PreviousPeriod() Period {
	if p.isMonthShaped() {
		start := p.Start.AddMonths(-1)
		return Period{Start: start, End: p.Start.AddDays(-1)}
	}
	newEnd := p.Start.AddDays(-1)
	return Period{Start: newEnd.AddDays(-DaysBetween(p.Start, p.End)), End: newEnd}
}

// isMonthShaped reports whether the period spans exactly one month from its
// start day, which is true for both calendar months and pay cycles.
func (p Period) isMonthShaped() bool {
	return p.Start.Day() <= 28 && p.End.Equal(p.Start.AddMonths(1).AddDays(-1))
}
