package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// TAX MODES
// =============================================================================

// TaxMode names a withholding preset. An explicit rate in the config always
// wins over the preset; TaxCustom has no preset at all.
type TaxMode string

const (
	TaxNone            TaxMode = "none"
	TaxBusinessIncome  TaxMode = "business_income"  // 3.3%
	TaxSocialInsurance TaxMode = "social_insurance" // 4.18%
	TaxCustom          TaxMode = "custom"
)

var taxPresets = map[TaxMode]decimal.Decimal{
	TaxNone:            decimal.Zero,
	TaxBusinessIncome:  decimal.RequireFromString("3.3"),
	TaxSocialInsurance: decimal.RequireFromString("4.18"),
}

// PresetRate returns the withholding percentage of a mode.
func PresetRate(mode TaxMode) (decimal.Decimal, error) {
	if mode == "" {
		return decimal.Zero, nil
	}
	rate, ok := taxPresets[mode]
	if !ok {
		return decimal.Zero, &generic.ConfigError{Field: "tax_mode", Message: fmt.Sprintf("no preset rate for %q", mode)}
	}
	return rate, nil
}

// =============================================================================
// WITHHOLDING
// =============================================================================

// Withhold computes tax = floor(gross * ratePercent / 100) in whole currency
// units, and net = gross - tax.
func Withhold(gross generic.Amount, ratePercent decimal.Decimal) (tax, net generic.Amount) {
	if ratePercent.IsZero() || !gross.IsPositive() {
		return generic.ZeroMoney(), gross
	}
	tax = generic.Money(gross.Value.Mul(ratePercent).Div(hundred).Floor())
	return tax, gross.Sub(tax)
}
