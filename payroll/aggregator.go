package payroll

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// INPUT
// =============================================================================

// Input is everything one computation depends on. Two equal Inputs always
// produce byte-identical breakdowns.
type Input struct {
	SubjectID generic.SubjectID
	Period    generic.Period
	Config    EmploymentConfig
	Shifts    []Shift
}

// =============================================================================
// AGGREGATOR - The orchestrator
// =============================================================================

// Aggregator turns an Input into a Breakdown. It is stateless and safe for
// concurrent use; Holidays is only read.
type Aggregator struct {
	Holidays generic.HolidayCalendar
}

func NewAggregator(holidays generic.HolidayCalendar) *Aggregator {
	if holidays == nil {
		holidays = &generic.DefaultHolidayCalendar{}
	}
	return &Aggregator{Holidays: holidays}
}

// Compute prices every shift of the subject that starts inside the period.
//
// Shifts that cannot be priced (unparseable or non-positive interval, no
// wage anywhere) are excluded and reported in Warnings; they never abort the
// computation. Shifts of other subjects are ignored. The only error is a
// malformed period.
func (a *Aggregator) Compute(in Input) (Breakdown, error) {
	if err := in.Period.Validate(); err != nil {
		return Breakdown{}, fmt.Errorf("compute %s: %w", in.SubjectID, err)
	}

	result := ZeroBreakdown(in.SubjectID, in.Period)
	result.TaxRatePercent = in.Config.TaxRatePercent
	engine := NewRuleEngine(in.SubjectID, in.Config, a.Holidays)

	var pays []ShiftPay
	for _, shift := range sortedShifts(in.Shifts) {
		if shift.SubjectID != "" && in.SubjectID != "" && shift.SubjectID != in.SubjectID {
			continue
		}
		if shift.ParseError != "" || shift.Start.IsZero() || shift.End.IsZero() {
			result.Warnings = append(result.Warnings, generic.ShiftError{
				ShiftID: shift.ID,
				Reason:  generic.ErrInvalidInterval,
				Detail:  shift.ParseError,
			})
			continue
		}
		if !in.Period.ContainsInstant(shift.Start) {
			continue
		}

		start, end := NormalizeInterval(shift.Start, shift.End)
		if !end.After(start) {
			result.Warnings = append(result.Warnings, generic.ShiftError{
				ShiftID: shift.ID,
				Reason:  generic.ErrInvalidInterval,
				Detail:  "zero-length shift",
			})
			continue
		}

		wage, err := resolveWage(shift, in.Config)
		if err != nil {
			result.Warnings = append(result.Warnings, generic.ShiftError{
				ShiftID: shift.ID,
				Reason:  generic.ErrMissingRate,
				Detail:  err.Error(),
			})
			continue
		}

		pays = append(pays, engine.Evaluate(shift, wage))
	}

	if len(pays) == 0 {
		return result, nil
	}

	weekly := &WeeklyAggregator{Config: in.Config}
	weeks, weeklyCategory := weekly.Aggregate(pays)

	var base, night, overtime, holiday categoryTotal
	totalHours := decimal.Zero
	for _, p := range pays {
		totalHours = totalHours.Add(p.Hours)
		base.add(p.Base, p.Hours)
		night.add(p.Night, p.NightHours)
		overtime.add(p.Overtime, p.OvertimeHours)
		holiday.add(p.Holiday, p.HolidayHours)
	}

	result.Categories = []Category{
		base.category(CategoryBase),
		weeklyCategory,
		night.category(CategoryNight),
		overtime.category(CategoryOvertime),
		holiday.category(CategoryHoliday),
	}
	result.TotalHours = generic.Hours(totalHours)
	result.ShiftCount = len(pays)
	result.Weeks = weeks

	gross := generic.ZeroMoney()
	for _, c := range result.Categories {
		gross = gross.Add(c.Amount)
	}
	result.Gross = gross.Round()
	result.Tax, result.Net = Withhold(result.Gross, in.Config.TaxRatePercent)

	return result, nil
}

// resolveWage picks the shift's own wage, falling back to the config's.
func resolveWage(shift Shift, cfg EmploymentConfig) (decimal.Decimal, error) {
	wage := cfg.HourlyWage
	if shift.HourlyWage.Valid {
		wage = shift.HourlyWage
	}
	if !wage.Valid {
		return decimal.Zero, errors.New("set a wage on the shift or its subject")
	}
	if wage.Decimal.IsNegative() {
		return decimal.Zero, fmt.Errorf("wage %s is negative", wage.Decimal)
	}
	return wage.Decimal, nil
}

// sortedShifts orders a copy of the shifts by start, then ID, so the result
// does not depend on input order.
func sortedShifts(shifts []Shift) []Shift {
	out := make([]Shift, len(shifts))
	copy(out, shifts)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

type categoryTotal struct {
	amount decimal.Decimal
	hours  decimal.Decimal
}

func (t *categoryTotal) add(amount, hours decimal.Decimal) {
	t.amount = t.amount.Add(amount)
	t.hours = t.hours.Add(hours)
}

func (t categoryTotal) category(label CategoryLabel) Category {
	return newCategory(label, t.amount, t.hours)
}

func newCategory(label CategoryLabel, amount, hours decimal.Decimal) Category {
	rate := decimal.Zero
	if !hours.IsZero() {
		rate = amount.Div(hours).Round(generic.MinorUnitPlaces)
	}
	return Category{
		Label:         label,
		Amount:        generic.Money(amount),
		Hours:         generic.Hours(hours),
		EffectiveRate: rate,
	}
}
