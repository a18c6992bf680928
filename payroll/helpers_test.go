package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// at returns a March 2025 instant in UTC.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func march2025() generic.Period {
	return generic.MonthPeriod(2025, time.March)
}

func wage(n int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(n))
}

func shift(id string, start, end time.Time) payroll.Shift {
	return payroll.Shift{ID: generic.ShiftID(id), SubjectID: "cafe", Start: start, End: end}
}

func shiftAt(id string, start, end time.Time, hourly int64) payroll.Shift {
	s := shift(id, start, end)
	s.HourlyWage = wage(hourly)
	return s
}

// baseConfig is a 10000/h config with every allowance disabled.
func baseConfig() payroll.EmploymentConfig {
	cfg := payroll.DefaultConfig()
	cfg.HourlyWage = wage(10000)
	return cfg
}

func compute(t *testing.T, cfg payroll.EmploymentConfig, shifts ...payroll.Shift) payroll.Breakdown {
	t.Helper()
	agg := payroll.NewAggregator(nil)
	b, err := agg.Compute(payroll.Input{
		SubjectID: "cafe",
		Period:    march2025(),
		Config:    cfg,
		Shifts:    shifts,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return b
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	want := decimal.RequireFromString(expected)
	assert.Truef(t, want.Equal(actual), "expected %s, got %s %v", want, actual, msgAndArgs)
}
