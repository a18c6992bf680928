package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func cafe() payroll.Subject {
	cfg := payroll.DefaultConfig()
	cfg.HourlyWage = decimal.NewNullDecimal(decimal.NewFromInt(10030))
	cfg.NightAllowanceEnabled = true
	cfg.TaxMode = payroll.TaxBusinessIncome
	cfg.TaxRatePercent = decimal.RequireFromString("3.3")
	return payroll.Subject{ID: "cafe", Name: "Corner Cafe", Color: "#4f46e5", Kind: payroll.SubjectWorkplace, Config: cfg}
}

// =============================================================================
// SUBJECTS
// =============================================================================

func TestSubjects_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSubject(ctx, cafe()))

	got, err := store.GetSubject(ctx, "cafe")
	require.NoError(t, err)
	assert.Equal(t, "Corner Cafe", got.Name)
	assert.Equal(t, "#4f46e5", got.Color)
	assert.Equal(t, payroll.SubjectWorkplace, got.Kind)
	assert.True(t, got.Config.NightAllowanceEnabled)
	assert.Equal(t, "10030", got.Config.HourlyWage.Decimal.String())
	assert.Equal(t, "3.3", got.Config.TaxRatePercent.String())
}

func TestSubjects_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSubject(context.Background(), "missing")
	assert.ErrorIs(t, err, generic.ErrSubjectNotFound)
}

func TestSubjects_ListByTeamAndKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSubject(ctx, cafe()))
	for _, id := range []generic.SubjectID{"zoe", "ann"} {
		require.NoError(t, store.SaveSubject(ctx, payroll.Subject{ID: id, Name: string(id), Kind: payroll.SubjectMember, TeamID: "kitchen", Config: payroll.DefaultConfig()}))
	}

	members, err := store.ListSubjectsByTeam(ctx, "kitchen")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, generic.SubjectID("ann"), members[0].ID)

	workplaces, err := store.ListSubjects(ctx, payroll.SubjectWorkplace)
	require.NoError(t, err)
	require.Len(t, workplaces, 1)
	assert.Equal(t, generic.SubjectID("cafe"), workplaces[0].ID)
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestShifts_RoundTripKeepsOffsetAndWage(t *testing.T) {
	// GIVEN: A Seoul overnight shift with its own wage
	// WHEN: Saved and listed for March
	// THEN: Wall clock, offset and wage are preserved

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, cafe()))

	seoul := time.FixedZone("KST", 9*60*60)
	shift := payroll.Shift{
		ID:         "s1",
		SubjectID:  "cafe",
		Name:       "Closing",
		Start:      time.Date(2025, time.March, 3, 21, 0, 0, 0, seoul),
		End:        time.Date(2025, time.March, 4, 5, 0, 0, 0, seoul),
		HourlyWage: decimal.NewNullDecimal(decimal.NewFromInt(12000)),
	}
	require.NoError(t, store.SaveShift(ctx, shift))

	shifts, err := store.ListShifts(ctx, "cafe", generic.NewTimePoint(2025, 3, 1), generic.NewTimePoint(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, shifts, 1)

	got := shifts[0]
	assert.Equal(t, 21, got.Start.Hour())
	assert.True(t, got.Start.Equal(shift.Start))
	assert.Equal(t, "12000", got.HourlyWage.Decimal.String())
	assert.Equal(t, 7*time.Hour, payroll.NightDuration(got.Start, got.End))
}

func TestShifts_RangeFiltersOnStartDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, cafe()))

	feb := payroll.Shift{ID: "feb", SubjectID: "cafe",
		Start: time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)}
	mar := payroll.Shift{ID: "mar", SubjectID: "cafe",
		Start: time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC), End: time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, store.SaveShift(ctx, feb))
	require.NoError(t, store.SaveShift(ctx, mar))

	shifts, err := store.ListShifts(ctx, "cafe", generic.NewTimePoint(2025, 3, 1), generic.NewTimePoint(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, generic.ShiftID("mar"), shifts[0].ID)
	assert.False(t, shifts[0].HourlyWage.Valid)
}

func TestShifts_UnknownSubjectRejected(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveShift(context.Background(), payroll.Shift{ID: "x", SubjectID: "ghost",
		Start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, generic.ErrSubjectNotFound)
}

func TestShifts_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, cafe()))
	require.NoError(t, store.SaveShift(ctx, payroll.Shift{ID: "s1", SubjectID: "cafe",
		Start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}))

	require.NoError(t, store.DeleteShift(ctx, "s1"))
	assert.ErrorIs(t, store.DeleteShift(ctx, "s1"), generic.ErrShiftNotFound)
	_, err := store.GetShift(ctx, "s1")
	assert.ErrorIs(t, err, generic.ErrShiftNotFound)
}

func TestSubjects_DeleteCascadesToShifts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, cafe()))
	require.NoError(t, store.SaveShift(ctx, payroll.Shift{ID: "s1", SubjectID: "cafe",
		Start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}))

	require.NoError(t, store.DeleteSubject(ctx, "cafe"))
	_, err := store.GetShift(ctx, "s1")
	assert.ErrorIs(t, err, generic.ErrShiftNotFound)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_SubjectGlobalAndRecurring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{ID: "h1", Date: generic.NewTimePoint(2025, 3, 1), Name: "Independence Movement Day", Recurring: true}))
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{ID: "h2", SubjectID: "cafe", Date: generic.NewTimePoint(2025, 3, 12), Name: "Anniversary"}))

	assert.True(t, store.IsHoliday("cafe", generic.NewTimePoint(2026, 3, 1)), "recurring global holiday")
	assert.True(t, store.IsHoliday("cafe", generic.NewTimePoint(2025, 3, 12)))
	assert.False(t, store.IsHoliday("bakery", generic.NewTimePoint(2025, 3, 12)), "other subject's holiday")
	assert.False(t, store.IsHoliday("cafe", generic.NewTimePoint(2026, 3, 12)), "one-off holiday does not recur")

	holidays := store.GetHolidays("cafe", 2026)
	require.Len(t, holidays, 1)
	assert.Equal(t, "2026-03-01", holidays[0].Date.String())

	all, err := store.GetAllHolidays(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteHoliday(ctx, "h2"))
	assert.False(t, store.IsHoliday("cafe", generic.NewTimePoint(2025, 3, 12)))
}

func TestHolidays_DriveHolidayAllowance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{ID: "h1", Date: generic.NewTimePoint(2025, 3, 5), Name: "Store holiday"}))

	cfg := payroll.DefaultConfig()
	cfg.HourlyWage = decimal.NewNullDecimal(decimal.NewFromInt(10000))
	cfg.HolidayAllowanceEnabled = true

	b, err := payroll.NewAggregator(store).Compute(payroll.Input{
		SubjectID: "cafe",
		Period:    generic.MonthPeriod(2025, time.March),
		Config:    cfg,
		Shifts: []payroll.Shift{{ID: "wed", SubjectID: "cafe",
			Start: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "60000.00", b.Gross.String())
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func TestPayrollRuns_StoredInMinorUnits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := generic.MonthPeriod(2025, time.March)

	closed, err := store.IsPeriodClosed(ctx, "cafe", march)
	require.NoError(t, err)
	assert.False(t, closed)

	run := payroll.Run{
		ID:          "run-1",
		SubjectID:   "cafe",
		Period:      march,
		Status:      payroll.RunCompleted,
		Fingerprint: "abc",
		Gross:       generic.Money(decimal.RequireFromString("115000.50")),
		Tax:         generic.Money(decimal.NewFromInt(3795)),
		Net:         generic.Money(decimal.RequireFromString("111205.50")),
		StartedAt:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2025, 4, 1, 0, 0, 1, 0, time.UTC),
	}
	require.NoError(t, store.SavePayrollRun(ctx, run))

	closed, err = store.IsPeriodClosed(ctx, "cafe", march)
	require.NoError(t, err)
	assert.True(t, closed)

	runs, err := store.GetPayrollRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "115000.50", runs[0].Gross.String())
	assert.Equal(t, "111205.50", runs[0].Net.String())
	assert.Equal(t, "2025-03-01", runs[0].Period.Start.String())

	// Closing again updates in place
	run.ID = "run-2"
	run.Status = payroll.RunFailed
	require.NoError(t, store.SavePayrollRun(ctx, run))
	runs, err = store.GetPayrollRuns(ctx, payroll.RunFailed)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, cafe()))
	require.NoError(t, store.Reset(ctx))

	subjects, err := store.ListSubjects(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, subjects)
}
