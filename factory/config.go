/*
Package factory converts JSON records into payroll types.

PURPOSE:
  The scheduling side stores shifts and employment settings as JSON. The
  factory turns them into payroll.Shift and payroll.EmploymentConfig, filling
  defaults and mapping tax presets to a single canonical rate.

JSON SCHEMA (config):
  {
    "hourly_wage": 10030,
    "weekly_allowance": true,
    "night_allowance": true,
    "night_rate": 150,
    "overtime_allowance": false,
    "holiday_allowance": true,
    "holiday_rate": 150,
    "tax_mode": "business_income",
    "tax_rate": 3.3,
    "rest_day": "sunday",
    "week_start": "sunday",
    "weekly_wage_policy": "weighted"
  }

JSON SCHEMA (shift):
  {
    "id": "s-1",
    "subjectId": "cafe",
    "name": "Closing",
    "startTime": "2025-03-03T21:00:00+09:00",
    "endTime": "2025-03-04T05:00:00+09:00",
    "hourlyWage": 10030
  }

RULES:
  - Unset rates default to 150
  - An explicit tax_rate wins over the tax_mode preset
  - Timestamps without an offset are read in the parser's location
  - A shift whose timestamps cannot be read is still returned, with
    ParseError set, so the aggregator can report it

SEE ALSO:
  - payroll/types.go: Shift and EmploymentConfig
  - store/sqlite/sqlite.go: Stores ConfigJSON verbatim
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of an employment config.
type ConfigJSON struct {
	HourlyWage        *decimal.Decimal `json:"hourly_wage,omitempty"`
	WeeklyAllowance   bool             `json:"weekly_allowance"`
	NightAllowance    bool             `json:"night_allowance"`
	NightRate         *decimal.Decimal `json:"night_rate,omitempty"`
	OvertimeAllowance bool             `json:"overtime_allowance"`
	OvertimeRate      *decimal.Decimal `json:"overtime_rate,omitempty"`
	HolidayAllowance  bool             `json:"holiday_allowance"`
	HolidayRate       *decimal.Decimal `json:"holiday_rate,omitempty"`
	TaxMode           string           `json:"tax_mode,omitempty"`
	TaxRate           *decimal.Decimal `json:"tax_rate,omitempty"`
	RestDay           string           `json:"rest_day,omitempty"`
	WeekStart         string           `json:"week_start,omitempty"`
	WeeklyWagePolicy  string           `json:"weekly_wage_policy,omitempty"`
}

// =============================================================================
// CONFIG PARSING
// =============================================================================

// ParseConfig parses a JSON document into a validated EmploymentConfig.
func ParseConfig(data []byte) (payroll.EmploymentConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return payroll.EmploymentConfig{}, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
	}
	return ConfigFromJSON(cj)
}

// ConfigFromJSON converts ConfigJSON, applying defaults, and validates it.
func ConfigFromJSON(cj ConfigJSON) (payroll.EmploymentConfig, error) {
	cfg := payroll.DefaultConfig()

	if cj.HourlyWage != nil {
		cfg.HourlyWage = decimal.NewNullDecimal(*cj.HourlyWage)
	}
	cfg.WeeklyAllowanceEnabled = cj.WeeklyAllowance
	cfg.NightAllowanceEnabled = cj.NightAllowance
	cfg.OvertimeAllowanceEnabled = cj.OvertimeAllowance
	cfg.HolidayAllowanceEnabled = cj.HolidayAllowance
	if cj.NightRate != nil {
		cfg.NightRatePercent = *cj.NightRate
	}
	if cj.OvertimeRate != nil {
		cfg.OvertimeRatePercent = *cj.OvertimeRate
	}
	if cj.HolidayRate != nil {
		cfg.HolidayRatePercent = *cj.HolidayRate
	}

	if err := applyTax(&cfg, cj.TaxMode, cj.TaxRate); err != nil {
		return payroll.EmploymentConfig{}, err
	}

	var err error
	if cj.RestDay != "" {
		if cfg.RestDay, err = ParseWeekday(cj.RestDay); err != nil {
			return payroll.EmploymentConfig{}, &generic.ConfigError{Field: "rest_day", Message: err.Error()}
		}
	}
	if cj.WeekStart != "" {
		if cfg.WeekStart, err = ParseWeekday(cj.WeekStart); err != nil {
			return payroll.EmploymentConfig{}, &generic.ConfigError{Field: "week_start", Message: err.Error()}
		}
	}
	if cj.WeeklyWagePolicy != "" {
		cfg.WeeklyWagePolicy = payroll.WeeklyWagePolicy(cj.WeeklyWagePolicy)
	}

	if err := cfg.Validate(); err != nil {
		return payroll.EmploymentConfig{}, err
	}
	return cfg, nil
}

// applyTax resolves the canonical rate: explicit rate, else the preset.
func applyTax(cfg *payroll.EmploymentConfig, mode string, rate *decimal.Decimal) error {
	cfg.TaxMode = payroll.TaxMode(mode)
	if mode == "" {
		cfg.TaxMode = payroll.TaxNone
		if rate != nil && !rate.IsZero() {
			cfg.TaxMode = payroll.TaxCustom
		}
	}
	if rate != nil {
		cfg.TaxRatePercent = *rate
		return nil
	}
	preset, err := payroll.PresetRate(cfg.TaxMode)
	if err != nil {
		return err
	}
	cfg.TaxRatePercent = preset
	return nil
}

// ConfigToJSON converts an EmploymentConfig back to its JSON form.
func ConfigToJSON(cfg payroll.EmploymentConfig) ConfigJSON {
	night, overtime, holiday, tax := cfg.NightRatePercent, cfg.OvertimeRatePercent, cfg.HolidayRatePercent, cfg.TaxRatePercent
	cj := ConfigJSON{
		WeeklyAllowance:   cfg.WeeklyAllowanceEnabled,
		NightAllowance:    cfg.NightAllowanceEnabled,
		NightRate:         &night,
		OvertimeAllowance: cfg.OvertimeAllowanceEnabled,
		OvertimeRate:      &overtime,
		HolidayAllowance:  cfg.HolidayAllowanceEnabled,
		HolidayRate:       &holiday,
		TaxMode:           string(cfg.TaxMode),
		TaxRate:           &tax,
		RestDay:           strings.ToLower(cfg.RestDay.String()),
		WeekStart:         strings.ToLower(cfg.WeekStart.String()),
		WeeklyWagePolicy:  string(cfg.WeeklyWagePolicy),
	}
	if cfg.HourlyWage.Valid {
		w := cfg.HourlyWage.Decimal
		cj.HourlyWage = &w
	}
	return cj
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
