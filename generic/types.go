/*
Package generic provides the domain-agnostic building blocks of the wage engine.

PURPOSE:
  Money and hours arithmetic, calendar dates, periods, holidays and the error
  taxonomy. The payroll package composes these into the actual pay rules; the
  store, cache and api packages persist and serve the results.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 12000 currency, 7.5 hours)
  - Identifiers: SubjectID, ShiftID, TeamID
  - Conversions: durations to decimal hours, amounts to integer minor units

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 money
  2. Type Safety: distinct ID types prevent mixing subjects and shifts
  3. Single rounding: amounts stay unrounded until the final payroll step

USAGE:
  wage := generic.NewMoney(10000)
  hours := generic.HoursOf(8 * time.Hour)
  base := wage.Mul(hours.Value) // 80000 currency

SEE ALSO:
  - period.go: Period and month navigation
  - errors.go: Error taxonomy
  - payroll/: The pay rules built on these types
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

type Unit string

const (
	UnitCurrency Unit = "currency" // single local currency, whole-unit denominated
	UnitHours    Unit = "hours"
)

// MinorUnitPlaces is the number of decimal places kept when an amount is
// persisted or transmitted as an integer.
const MinorUnitPlaces = 2

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

func NewMoney(value int64) Amount    { return NewAmountFromInt(value, UnitCurrency) }
func ZeroMoney() Amount              { return Amount{Value: decimal.Zero, Unit: UnitCurrency} }
func ZeroHours() Amount              { return Amount{Value: decimal.Zero, Unit: UnitHours} }
func Money(d decimal.Decimal) Amount { return Amount{Value: d, Unit: UnitCurrency} }
func Hours(d decimal.Decimal) Amount { return Amount{Value: d, Unit: UnitHours} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }

// Round rounds half away from zero to the minor unit.
func (a Amount) Round() Amount {
	return Amount{Value: a.Value.Round(MinorUnitPlaces), Unit: a.Unit}
}

// MinorUnits returns the amount as an integer count of minor units
// (value * 10^MinorUnitPlaces), rounded half away from zero.
func (a Amount) MinorUnits() int64 {
	return a.Value.Shift(MinorUnitPlaces).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(minor int64, unit Unit) Amount {
	return Amount{Value: decimal.New(minor, -MinorUnitPlaces), Unit: unit}
}

// String renders the value with exactly MinorUnitPlaces decimals.
func (a Amount) String() string {
	return a.Value.StringFixed(MinorUnitPlaces)
}

// =============================================================================
// DURATIONS
// =============================================================================

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// HoursOf converts a duration to exact decimal hours.
func HoursOf(d time.Duration) Amount {
	return Hours(decimal.NewFromInt(int64(d)).Div(nanosPerHour))
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// SubjectID identifies who payroll is computed for: a workplace of an
// individual, or a member of a team.
type SubjectID string

type ShiftID string

type TeamID string
