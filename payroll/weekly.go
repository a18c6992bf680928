package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// Weekly-rest allowance constants. A week qualifies at WeeklyThresholdHours
// or more, and is paid (hours / FullTimeWeeklyHours) * PaidRestHours hours
// at the week's reference wage. There is no cap at 40 hours.
var (
	WeeklyThresholdHours = decimal.NewFromInt(15)
	FullTimeWeeklyHours  = decimal.NewFromInt(40)
	PaidRestHours        = decimal.NewFromInt(8)
)

// =============================================================================
// WEEKLY AGGREGATOR
// =============================================================================

// WeeklyAggregator buckets priced shifts into weeks by their start date.
// A shift crossing into the next week counts entirely toward the week it
// started in.
type WeeklyAggregator struct {
	Config EmploymentConfig
}

type weekBucket struct {
	start  generic.TimePoint
	shifts []ShiftPay
}

// Aggregate returns one summary per week containing at least one shift, in
// chronological order, plus the weekly-rest category. Weeks are always
// summarized; amounts are zero when the allowance is disabled.
//
// Only shifts of the current period are seen, so a week straddling a period
// boundary is evaluated with its in-period shifts only.
func (w *WeeklyAggregator) Aggregate(pays []ShiftPay) ([]WeekSummary, Category) {
	buckets := make(map[string]*weekBucket)
	for _, p := range pays {
		ws := generic.StartOfWeek(p.Date, w.Config.WeekStart)
		b, ok := buckets[ws.String()]
		if !ok {
			b = &weekBucket{start: ws}
			buckets[ws.String()] = b
		}
		b.shifts = append(b.shifts, p)
	}

	ordered := make([]*weekBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start.Before(ordered[j].start) })

	weeks := make([]WeekSummary, 0, len(ordered))
	amount := decimal.Zero
	paidHours := decimal.Zero
	for _, b := range ordered {
		s := w.summarize(b)
		amount = amount.Add(s.Amount.Value)
		paidHours = paidHours.Add(s.PaidHours.Value)
		weeks = append(weeks, s)
	}

	return weeks, newCategory(CategoryWeekly, amount, paidHours)
}

func (w *WeeklyAggregator) summarize(b *weekBucket) WeekSummary {
	hours := decimal.Zero
	for _, p := range b.shifts {
		hours = hours.Add(p.Hours)
	}

	wage, mixed := w.referenceWage(b.shifts, hours)
	s := WeekSummary{
		WeekStart:     b.start,
		Hours:         generic.Hours(hours),
		ReferenceWage: generic.Money(wage),
		Qualified:     hours.GreaterThanOrEqual(WeeklyThresholdHours),
		PaidHours:     generic.ZeroHours(),
		Amount:        generic.ZeroMoney(),
		MixedWages:    mixed,
	}
	if s.Qualified && w.Config.WeeklyAllowanceEnabled {
		paid := hours.Div(FullTimeWeeklyHours).Mul(PaidRestHours)
		s.PaidHours = generic.Hours(paid)
		s.Amount = generic.Money(paid.Mul(wage))
	}
	return s
}

// referenceWage picks the wage the weekly allowance is paid at. Shifts are
// expected in chronological order.
func (w *WeeklyAggregator) referenceWage(shifts []ShiftPay, hours decimal.Decimal) (decimal.Decimal, bool) {
	if len(shifts) == 0 {
		return decimal.Zero, false
	}
	mixed := false
	for _, p := range shifts[1:] {
		if !p.Wage.Equal(shifts[0].Wage) {
			mixed = true
			break
		}
	}
	if !mixed || w.Config.WeeklyWagePolicy == WeeklyWageFirstShift || hours.IsZero() {
		return shifts[0].Wage, mixed
	}

	weighted := decimal.Zero
	for _, p := range shifts {
		weighted = weighted.Add(p.Wage.Mul(p.Hours))
	}
	return weighted.Div(hours), mixed
}
