/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Subjects are created with their configs
	- Shifts are stored for the current month
	- Payroll over the loaded data exercises the intended allowances

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wage-engine/cache"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/store/sqlite"
)

var scenarioMonth = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bunt, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunt.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := payroll.NewService(store, store, bunt, payroll.NewAggregator(store), logger)

	h := NewHandler(store, svc, logger)
	h.Cache = bunt
	h.Now = func() time.Time { return scenarioMonth.AddDate(0, 0, 9) }
	return h
}

func monthPayroll(t *testing.T, h *Handler, id string) payroll.Breakdown {
	t.Helper()
	b, err := h.Service.SubjectPayroll(context.Background(), generic.SubjectID(id), generic.MonthPeriod(2025, time.April))
	require.NoError(t, err)
	return b
}

func category(b payroll.Breakdown, label payroll.CategoryLabel) payroll.Category {
	for _, c := range b.Categories {
		if c.Label == label {
			return c
		}
	}
	return payroll.Category{}
}

func TestScenario_TwoJobs(t *testing.T) {
	// GIVEN: The two-jobs scenario
	// WHEN: Loading it and computing April
	// THEN: Two workplaces; the cafe earns night pay and withholds 3.3%

	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadTwoJobsScenario(ctx, scenarioMonth))

	workplaces, err := h.Store.ListSubjects(ctx, payroll.SubjectWorkplace)
	require.NoError(t, err)
	assert.Len(t, workplaces, 2)

	cafe := monthPayroll(t, h, "cafe")
	assert.Equal(t, 12, cafe.ShiftCount)
	assert.Empty(t, cafe.Warnings)
	assert.True(t, category(cafe, payroll.CategoryNight).Amount.IsPositive(), "evening shifts run past 22:00")
	assert.True(t, cafe.Tax.IsPositive())
	assert.True(t, cafe.Net.Value.Equal(cafe.Gross.Value.Sub(cafe.Tax.Value)))

	store := monthPayroll(t, h, "store")
	assert.Equal(t, 4, store.ShiftCount)
	assert.True(t, store.Tax.IsZero())
	assert.True(t, category(store, payroll.CategoryWeekly).Amount.IsZero(), "6h Saturdays never reach 15h")
}

func TestScenario_NightCrew(t *testing.T) {
	// GIVEN: The night-crew scenario
	// WHEN: Loading it
	// THEN: Three members share a team and each exercises an allowance

	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadNightCrewScenario(ctx, scenarioMonth))

	members, err := h.Store.ListSubjectsByTeam(ctx, "night-crew")
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members {
		assert.Equal(t, payroll.SubjectMember, m.Kind)
	}

	alice := monthPayroll(t, h, "alice")
	assert.True(t, category(alice, payroll.CategoryOvertime).Amount.IsPositive(), "10h shifts exceed 8h")
	assert.True(t, category(alice, payroll.CategoryWeekly).Amount.IsPositive(), "30h weeks qualify")

	bora := monthPayroll(t, h, "bora")
	assert.True(t, category(bora, payroll.CategoryNight).Hours.Equal(category(bora, payroll.CategoryBase).Hours), "22:00-06:00 lies inside the night window")

	chen := monthPayroll(t, h, "chen")
	require.NotEmpty(t, chen.Weeks)
	for _, w := range chen.Weeks {
		assert.True(t, w.MixedWages, "week %s mixes two wages", w.WeekStart)
	}
}

func TestScenario_HolidayRush(t *testing.T) {
	// GIVEN: The holiday-rush scenario
	// WHEN: Loading it
	// THEN: Sunday and festival shifts earn the holiday allowance

	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadHolidayRushScenario(ctx, scenarioMonth))

	holidays, err := h.Store.GetAllHolidays(ctx, "bakery")
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "2025-04-15", holidays[0].Date.String())

	b := monthPayroll(t, h, "bakery")
	// Sundays in April 2025: 6, 13, 20, 27 plus the 15th
	assert.True(t, category(b, payroll.CategoryHoliday).Hours.Value.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "2.5", b.TaxRatePercent.String())
}

func TestLoadScenario_Endpoint(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, RouterOptions{})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/scenarios")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), `"id"`))

	for _, s := range scenarios {
		rec = post("/api/scenarios/load", `{"scenario_id": "`+s.ID+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", s.ID, rec.Body.String())
	}

	rec = get("/api/scenarios/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "holiday-rush")

	rec = post("/api/scenarios/load", `{"scenario_id": "night-crew"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = get("/api/teams/night-crew/payroll")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), `"team_id":"night-crew"`))

	subjects, err := h.Store.ListSubjects(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, subjects, 3, "loading resets earlier scenarios")

	rec = post("/api/scenarios/load", `{"scenario_id": "moon-base"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = get("/api/scenarios/current")
	assert.Equal(t, "null\n", rec.Body.String())
}
