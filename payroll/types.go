/*
Package payroll turns recorded shifts into an itemized pay breakdown.

PURPOSE:
  The engine is a pure pipeline:

    (Shifts, EmploymentConfig, Period) -> Breakdown

  It holds no state of its own. Every query (a month view, a payslip export,
  a team total) recomputes from the shift snapshot it is given; memoization
  lives outside the core (see Service and the cache package).

PIPELINE:
  1. Aggregator validates shifts and keeps those starting inside the period
  2. RuleEngine prices each shift: base, night, overtime, holiday
  3. WeeklyAggregator buckets hours by week for the weekly-rest allowance
  4. Withhold applies the tax rate once, on the rounded gross

MONEY:
  All amounts are decimal.Decimal in a single local currency. Category
  amounts are kept unrounded; gross is rounded to minor units exactly once
  and tax is floored to whole units, so Net == Gross - Tax always holds.

SEE ALSO:
  - night.go: Night window interval arithmetic
  - allowance.go: Per-shift differentials
  - weekly.go: Weekly-rest allowance
  - tax.go: Withholding and tax presets
  - aggregator.go: The orchestrator
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// SHIFT - Immutable input record
// =============================================================================

// Shift is one worked interval. End may precede Start for overnight shifts
// recorded as wall-clock times; NormalizeInterval moves it to the next day.
type Shift struct {
	ID        generic.ShiftID
	SubjectID generic.SubjectID
	Name      string
	Start     time.Time
	End       time.Time

	// HourlyWage overrides the subject's wage when valid.
	HourlyWage decimal.NullDecimal

	// ParseError is set by the boundary when the record's timestamps could
	// not be read. Such shifts are reported, never priced.
	ParseError string
}

// =============================================================================
// EMPLOYMENT CONFIG - Per-subject allowance rules
// =============================================================================

// WeeklyWagePolicy selects the reference wage of a week whose shifts were
// paid at different hourly wages.
type WeeklyWagePolicy string

const (
	WeeklyWageWeighted   WeeklyWagePolicy = "weighted"    // hours-weighted average
	WeeklyWageFirstShift WeeklyWagePolicy = "first_shift" // wage of the week's earliest shift
)

// EmploymentConfig holds the allowance rules for one subject. Rate
// percentages are multipliers where 100 means no differential.
type EmploymentConfig struct {
	// HourlyWage is the fallback for shifts without their own wage.
	HourlyWage decimal.NullDecimal

	WeeklyAllowanceEnabled bool

	NightAllowanceEnabled bool
	NightRatePercent      decimal.Decimal

	OvertimeAllowanceEnabled bool
	OvertimeRatePercent      decimal.Decimal

	HolidayAllowanceEnabled bool
	HolidayRatePercent      decimal.Decimal

	TaxMode        TaxMode
	TaxRatePercent decimal.Decimal

	// RestDay is the weekday treated as a designated holiday.
	RestDay time.Weekday
	// WeekStart is the first day of every weekly bucket.
	WeekStart time.Weekday

	WeeklyWagePolicy WeeklyWagePolicy
}

// DefaultRatePercent is used for allowance rates left unset.
var DefaultRatePercent = decimal.NewFromInt(150)

var hundred = decimal.NewFromInt(100)

// DefaultConfig returns a config with every allowance disabled, 150% rates,
// Sunday as both rest day and week start, and no withholding.
func DefaultConfig() EmploymentConfig {
	return EmploymentConfig{
		NightRatePercent:    DefaultRatePercent,
		OvertimeRatePercent: DefaultRatePercent,
		HolidayRatePercent:  DefaultRatePercent,
		TaxMode:             TaxNone,
		TaxRatePercent:      decimal.Zero,
		RestDay:             time.Sunday,
		WeekStart:           time.Sunday,
		WeeklyWagePolicy:    WeeklyWageWeighted,
	}
}

// Validate checks rate bounds.
func (c EmploymentConfig) Validate() error {
	if c.HourlyWage.Valid && c.HourlyWage.Decimal.IsNegative() {
		return &generic.ConfigError{Field: "hourly_wage", Message: "must not be negative"}
	}
	rates := []struct {
		field string
		value decimal.Decimal
	}{
		{"night_rate", c.NightRatePercent},
		{"overtime_rate", c.OvertimeRatePercent},
		{"holiday_rate", c.HolidayRatePercent},
	}
	for _, r := range rates {
		if r.value.LessThan(hundred) {
			return &generic.ConfigError{Field: r.field, Message: "must be at least 100"}
		}
	}
	if c.TaxRatePercent.IsNegative() || c.TaxRatePercent.GreaterThan(hundred) {
		return &generic.ConfigError{Field: "tax_rate", Message: "must be between 0 and 100"}
	}
	switch c.WeeklyWagePolicy {
	case "", WeeklyWageWeighted, WeeklyWageFirstShift:
	default:
		return &generic.ConfigError{Field: "weekly_wage_policy", Message: "unknown policy " + string(c.WeeklyWagePolicy)}
	}
	return nil
}

// differential turns a rate percentage into the extra-pay fraction.
func differential(ratePercent decimal.Decimal) decimal.Decimal {
	return ratePercent.Sub(hundred).Div(hundred)
}

// =============================================================================
// SUBJECT - Who payroll is computed for
// =============================================================================

type SubjectKind string

const (
	SubjectWorkplace SubjectKind = "workplace" // an individual's workplace
	SubjectMember    SubjectKind = "member"    // a member of a team
)

// Subject carries the config plus display metadata. The engine only reads
// Config; name and color are attached to results by the presentation side.
type Subject struct {
	ID     generic.SubjectID
	Name   string
	Color  string
	Kind   SubjectKind
	TeamID generic.TeamID
	Config EmploymentConfig
}

// =============================================================================
// BREAKDOWN - The engine's output
// =============================================================================

type CategoryLabel string

const (
	CategoryBase     CategoryLabel = "base"
	CategoryWeekly   CategoryLabel = "weekly_rest"
	CategoryNight    CategoryLabel = "night"
	CategoryOvertime CategoryLabel = "overtime"
	CategoryHoliday  CategoryLabel = "holiday"
)

// CategoryOrder is the fixed line-item order of every breakdown.
var CategoryOrder = []CategoryLabel{
	CategoryBase,
	CategoryWeekly,
	CategoryNight,
	CategoryOvertime,
	CategoryHoliday,
}

// Category is one line item. Amount is unrounded; EffectiveRate is
// Amount/Hours rounded to minor units, zero when Hours is zero.
type Category struct {
	Label         CategoryLabel   `json:"label"`
	Amount        generic.Amount  `json:"amount"`
	Hours         generic.Amount  `json:"hours"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
}

// WeekSummary is the weekly-rest audit line for one week bucket.
type WeekSummary struct {
	WeekStart     generic.TimePoint `json:"week_start"`
	Hours         generic.Amount    `json:"hours"`
	ReferenceWage generic.Amount    `json:"reference_wage"`
	Qualified     bool              `json:"qualified"`
	PaidHours     generic.Amount    `json:"paid_hours"`
	Amount        generic.Amount    `json:"amount"`
	MixedWages    bool              `json:"mixed_wages"`
}

// Breakdown is the itemized pay of one subject for one period.
//
// INVARIANT: Net == Gross - Tax exactly.
type Breakdown struct {
	SubjectID      generic.SubjectID    `json:"subject_id"`
	Period         generic.Period       `json:"period"`
	Categories     []Category           `json:"categories"`
	TotalHours     generic.Amount       `json:"total_hours"`
	ShiftCount     int                  `json:"shift_count"`
	Gross          generic.Amount       `json:"gross"`
	TaxRatePercent decimal.Decimal      `json:"tax_rate_percent"`
	Tax            generic.Amount       `json:"tax"`
	Net            generic.Amount       `json:"net"`
	Weeks          []WeekSummary        `json:"weeks"`
	Warnings       []generic.ShiftError `json:"warnings"`
}

// Category returns the line item with the given label.
func (b Breakdown) Category(label CategoryLabel) Category {
	for _, c := range b.Categories {
		if c.Label == label {
			return c
		}
	}
	return Category{Label: label, Amount: generic.ZeroMoney(), Hours: generic.ZeroHours()}
}

// ZeroBreakdown is the result for a period without any priced shift.
func ZeroBreakdown(subjectID generic.SubjectID, period generic.Period) Breakdown {
	categories := make([]Category, len(CategoryOrder))
	for i, label := range CategoryOrder {
		categories[i] = Category{Label: label, Amount: generic.ZeroMoney(), Hours: generic.ZeroHours(), EffectiveRate: decimal.Zero}
	}
	return Breakdown{
		SubjectID:      subjectID,
		Period:         period,
		Categories:     categories,
		TotalHours:     generic.ZeroHours(),
		Gross:          generic.ZeroMoney(),
		TaxRatePercent: decimal.Zero,
		Tax:            generic.ZeroMoney(),
		Net:            generic.ZeroMoney(),
		Weeks:          []WeekSummary{},
		Warnings:       []generic.ShiftError{},
	}
}
