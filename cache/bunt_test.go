package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wage-engine/cache"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

func newTestCache(t *testing.T) *cache.Bunt {
	c, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleBreakdown(t *testing.T) payroll.Breakdown {
	cfg := payroll.DefaultConfig()
	cfg.HourlyWage = decimal.NewNullDecimal(decimal.NewFromInt(10000))
	cfg.NightAllowanceEnabled = true
	cfg.WeeklyAllowanceEnabled = true
	b, err := payroll.NewAggregator(nil).Compute(payroll.Input{
		SubjectID: "cafe",
		Period:    generic.MonthPeriod(2025, time.March),
		Config:    cfg,
		Shifts: []payroll.Shift{
			{ID: "s1", Start: time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 3, 5, 0, 0, 0, time.UTC)},
			{ID: "bad", Start: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)},
		},
	})
	require.NoError(t, err)
	return b
}

func TestBunt_RoundTrip(t *testing.T) {
	// GIVEN: A breakdown with a warning and a week summary
	// WHEN: Stored and read back with the same fingerprint
	// THEN: Totals, categories and warnings survive

	c := newTestCache(t)
	ctx := context.Background()
	b := sampleBreakdown(t)

	require.NoError(t, c.Put(ctx, b, "fp-1"))

	got, err := c.Get(ctx, "cafe", b.Period, "fp-1")
	require.NoError(t, err)
	assert.True(t, got.Gross.Equal(b.Gross))
	assert.True(t, got.Category(payroll.CategoryNight).Amount.Equal(b.Category(payroll.CategoryNight).Amount))
	require.Len(t, got.Weeks, 1)
	assert.Equal(t, b.Weeks[0].WeekStart.String(), got.Weeks[0].WeekStart.String())
	require.Len(t, got.Warnings, 1)
	assert.ErrorIs(t, got.Warnings[0], generic.ErrInvalidInterval)
	assert.Equal(t, b.Period.Key(), got.Period.Key())
}

func TestBunt_FingerprintMismatchIsMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	b := sampleBreakdown(t)
	require.NoError(t, c.Put(ctx, b, "fp-1"))

	_, err := c.Get(ctx, "cafe", b.Period, "fp-2")
	assert.ErrorIs(t, err, generic.ErrCacheMiss)

	_, err = c.Get(ctx, "cafe", generic.MonthPeriod(2025, time.April), "fp-1")
	assert.ErrorIs(t, err, generic.ErrCacheMiss)
}

func TestBunt_Invalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	b := sampleBreakdown(t)
	require.NoError(t, c.Put(ctx, b, "fp-1"))

	other := b
	other.SubjectID = "cafe-2"
	require.NoError(t, c.Put(ctx, other, "fp-1"))

	require.NoError(t, c.Invalidate(ctx, "cafe"))

	_, err := c.Get(ctx, "cafe", b.Period, "fp-1")
	assert.ErrorIs(t, err, generic.ErrCacheMiss)
	_, err = c.Get(ctx, "cafe-2", b.Period, "fp-1")
	assert.NoError(t, err, "prefix of another subject is untouched")

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBunt_Purge(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	b := sampleBreakdown(t)
	require.NoError(t, c.Put(ctx, b, "fp-1"))

	require.NoError(t, c.Purge(ctx))

	n, err := c.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}
