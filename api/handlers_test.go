/*
handlers_test.go - HTTP tests for the payroll API

Tests drive the real router over an in-memory SQLite store and an
in-memory buntdb cache:
- Stateless compute and error mapping
- Subject and shift lifecycle
- Holiday edits purging cached payroll
- Month close and closed-period protection
- Team and personal totals, PDF and Excel exports
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wage-engine/api"
	"github.com/warp/wage-engine/cache"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router  http.Handler
	handler *api.Handler
	store   *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bunt, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunt.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := payroll.NewService(store, store, bunt, payroll.NewAggregator(store), logger)

	h := api.NewHandler(store, svc, logger)
	h.Cache = bunt
	h.Now = func() time.Time { return testNow }
	h.Closer.Now = h.Now

	return &testServer{
		router:  api.NewRouter(h, api.RouterOptions{Logger: logger}),
		handler: h,
		store:   store,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func mustMonth(t *testing.T, month string) generic.Period {
	t.Helper()
	period, err := generic.ParseMonth(month)
	require.NoError(t, err)
	return period
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createSubject(t *testing.T, body string) api.SubjectDTO {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/subjects", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.SubjectDTO](t, rec)
}

func (s *testServer) addShift(t *testing.T, subject, body string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/subjects/"+subject+"/shifts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) payroll(t *testing.T, subject, month string) api.PayrollResponse {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/subjects/"+subject+"/payroll?month="+month, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[api.PayrollResponse](t, rec)
}

const cafeSubject = `{"id": "cafe", "name": "Corner Cafe", "color": "#f59e0b",
	"config": {"hourly_wage": "10000", "holiday_allowance": true}}`

// =============================================================================
// COMPUTE
// =============================================================================

func TestComputePayroll_NightShiftWithTax(t *testing.T) {
	// GIVEN: A 21:00-05:00 shift at 10000/h with night allowance and 3.3% tax
	// WHEN: Computing statelessly
	// THEN: Gross 115000, tax 3795, net 111205; the broken shift is a warning

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/payroll/compute", `{
		"subject_id": "cafe",
		"month": "2025-03",
		"config": {"hourly_wage": "10000", "night_allowance": true, "tax_mode": "business_income"},
		"shifts": [
			{"id": "s1", "startTime": "2025-03-03T21:00:00Z", "endTime": "2025-03-03T05:00:00Z"},
			{"id": "s2", "startTime": "yesterday", "endTime": "2025-03-04T05:00:00Z"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	b := decode[api.BreakdownDTO](t, rec)
	assert.Equal(t, "115000.00", b.Gross.Value)
	assert.Equal(t, int64(11500000), b.Gross.Minor)
	assert.Equal(t, "3795.00", b.Tax.Value)
	assert.Equal(t, "111205.00", b.Net.Value)
	assert.Equal(t, 1, b.ShiftCount)
	require.Len(t, b.Warnings, 1)
	assert.Equal(t, "s2", b.Warnings[0].ShiftID)
	assert.Equal(t, "invalid_interval", b.Warnings[0].Code)

	require.Len(t, b.Categories, len(payroll.CategoryOrder))
	assert.Equal(t, "night", b.Categories[2].Label)
	assert.Equal(t, "35000.00", b.Categories[2].Amount.Value)
}

func TestComputePayroll_ClientErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{`},
		{"custom tax without rate", `{"month": "2025-03", "config": {"tax_mode": "custom"}, "shifts": []}`},
		{"bad month", `{"month": "March", "config": {}, "shifts": []}`},
		{"reversed period", `{"period_start": "2025-03-31", "period_end": "2025-03-01", "config": {}, "shifts": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/payroll/compute", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// SUBJECTS AND SHIFTS
// =============================================================================

func TestSubjects_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	created := s.createSubject(t, `{"name": "Bakery", "config": {"hourly_wage": "9860"}}`)
	assert.NotEmpty(t, created.ID, "id is generated")
	assert.Equal(t, "workplace", created.Kind)
	require.NotNil(t, created.Config.HourlyWage)
	assert.Equal(t, "9860", created.Config.HourlyWage.String())

	rec := s.do(t, http.MethodPut, "/api/subjects/"+created.ID, `{"name": "Bakery 2", "kind": "member", "team_id": "crew", "config": {}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/subjects/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.SubjectDTO](t, rec)
	assert.Equal(t, "Bakery 2", got.Name)
	assert.Equal(t, "crew", got.TeamID)

	rec = s.do(t, http.MethodGet, "/api/subjects?kind=member", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.SubjectDTO](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/subjects/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/subjects/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubjects_Rejects(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/subjects", `{"name": "X", "kind": "robot", "config": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/subjects", `{"name": "X", "config": {"night_rate": "-5"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/subjects/ghost", `{"name": "X", "config": {}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShifts_AddListDeleteAndPayroll(t *testing.T) {
	// GIVEN: A 10000/h workplace
	// WHEN: Two shifts are added and one is deleted
	// THEN: Payroll follows the stored shifts

	s := newTestServer(t)
	s.createSubject(t, cafeSubject)

	s.addShift(t, "cafe", `{"id": "a", "startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T17:00:00Z"}`)
	s.addShift(t, "cafe", `{"id": "b", "startTime": "2025-03-05T09:00:00Z", "endTime": "2025-03-05T13:00:00Z"}`)

	rec := s.do(t, http.MethodGet, "/api/subjects/cafe/shifts?month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	resp := s.payroll(t, "cafe", "2025-03")
	assert.Equal(t, "120000.00", resp.Breakdown.Gross.Value)
	assert.Equal(t, "Corner Cafe", resp.Subject.Name)
	assert.False(t, resp.Closed)

	rec = s.do(t, http.MethodDelete, "/api/shifts/b", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp = s.payroll(t, "cafe", "2025-03")
	assert.Equal(t, "80000.00", resp.Breakdown.Gross.Value)

	rec = s.do(t, http.MethodDelete, "/api/shifts/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShifts_Rejects(t *testing.T) {
	s := newTestServer(t)
	s.createSubject(t, cafeSubject)

	tests := []struct {
		name    string
		subject string
		body    string
		status  int
	}{
		{"unparseable start", "cafe", `{"startTime": "9am", "endTime": "2025-03-04T17:00:00Z"}`, http.StatusBadRequest},
		{"zero length", "cafe", `{"startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T09:00:00Z"}`, http.StatusBadRequest},
		{"unknown subject", "ghost", `{"startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T17:00:00Z"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/subjects/"+tt.subject+"/shifts", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPayroll_UnknownSubjectAndBadMonth(t *testing.T) {
	s := newTestServer(t)
	s.createSubject(t, cafeSubject)

	rec := s.do(t, http.MethodGet, "/api/subjects/ghost/payroll?month=2025-03", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/subjects/cafe/payroll?month=2025-13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayroll_DefaultsToCurrentMonth(t *testing.T) {
	s := newTestServer(t)
	s.createSubject(t, cafeSubject)

	rec := s.do(t, http.MethodGet, "/api/subjects/cafe/payroll", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-04-01", decode[api.PayrollResponse](t, rec).Breakdown.PeriodStart)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_EditsPurgeCachedPayroll(t *testing.T) {
	// GIVEN: A cached March payroll with an 8h Wednesday shift
	// WHEN: That Wednesday becomes a holiday, then the holiday is removed
	// THEN: The holiday differential appears and disappears immediately

	s := newTestServer(t)
	s.createSubject(t, cafeSubject)
	s.addShift(t, "cafe", `{"id": "a", "startTime": "2025-03-05T09:00:00Z", "endTime": "2025-03-05T17:00:00Z"}`)

	assert.Equal(t, "80000.00", s.payroll(t, "cafe", "2025-03").Breakdown.Gross.Value)

	rec := s.do(t, http.MethodPost, "/api/holidays", `{"subject_id": "cafe", "date": "2025-03-05", "name": "Festival"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	holiday := decode[api.HolidayDTO](t, rec)

	assert.Equal(t, "120000.00", s.payroll(t, "cafe", "2025-03").Breakdown.Gross.Value)

	rec = s.do(t, http.MethodGet, "/api/holidays?subject_id=cafe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Festival")

	rec = s.do(t, http.MethodDelete, "/api/holidays/"+holiday.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "80000.00", s.payroll(t, "cafe", "2025-03").Breakdown.Gross.Value)
}

func TestHolidays_Defaults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/holidays/defaults", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/holidays", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]api.HolidayDTO](t, rec)
	assert.Len(t, body["holidays"], 8)

	rec = s.do(t, http.MethodPost, "/api/holidays", `{"date": "05/05/2025", "name": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

func TestClosePayroll_RecordsRunAndLocksShifts(t *testing.T) {
	// GIVEN: March shifts and a clock in April
	// WHEN: March is closed
	// THEN: A completed run holds the totals and March shifts are locked

	s := newTestServer(t)
	s.createSubject(t, cafeSubject)
	s.addShift(t, "cafe", `{"id": "a", "startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T17:00:00Z"}`)

	rec := s.do(t, http.MethodPost, "/api/payroll/close", `{"month": "2025-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[api.CloseSummary](t, rec)
	assert.Equal(t, 1, summary.Closed)
	assert.Equal(t, 0, summary.Failed)

	rec = s.do(t, http.MethodGet, "/api/payroll/runs?status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[map[string][]api.RunDTO](t, rec)["runs"]
	require.Len(t, runs, 1)
	assert.Equal(t, int64(8000000), runs[0].Gross.Minor)
	assert.NotEmpty(t, runs[0].Fingerprint)

	assert.True(t, s.payroll(t, "cafe", "2025-03").Closed)

	rec = s.do(t, http.MethodPost, "/api/subjects/cafe/shifts", `{"startTime": "2025-03-10T09:00:00Z", "endTime": "2025-03-10T17:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/shifts/a", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// April is still open
	s.addShift(t, "cafe", `{"startTime": "2025-04-01T09:00:00Z", "endTime": "2025-04-01T17:00:00Z"}`)

	// Closing again skips
	rec = s.do(t, http.MethodPost, "/api/payroll/close", `{"month": "2025-03"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.CloseSummary](t, rec).Skipped)
}

func TestClosePayroll_RejectsOpenMonth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/payroll/close", `{"month": "2025-04"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/payroll/close", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduler_RunNowClosesPreviousMonth(t *testing.T) {
	s := newTestServer(t)
	s.createSubject(t, cafeSubject)

	s.handler.Closer.RunNow()

	closed, err := s.store.IsPeriodClosed(t.Context(), "cafe", mustMonth(t, "2025-03"))
	require.NoError(t, err)
	assert.True(t, closed)
}

// =============================================================================
// GROUP TOTALS AND EXPORTS
// =============================================================================

func TestTeamAndPersonalPayroll(t *testing.T) {
	s := newTestServer(t)
	for _, id := range []string{"alice", "bob"} {
		s.createSubject(t, `{"id": "`+id+`", "name": "`+id+`", "kind": "member", "team_id": "crew", "config": {"hourly_wage": "10000"}}`)
		s.addShift(t, id, `{"startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T17:00:00Z"}`)
	}
	s.createSubject(t, cafeSubject)
	s.addShift(t, "cafe", `{"startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T13:00:00Z"}`)

	rec := s.do(t, http.MethodGet, "/api/teams/crew/payroll?month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	team := decode[api.GroupPayrollResponse](t, rec)
	assert.Equal(t, "2025-03", team.Period)
	assert.Equal(t, "160000.00", team.Total.Gross.Value)
	require.Len(t, team.Members, 2)
	assert.Equal(t, "alice", team.Members[0].Subject.ID)

	rec = s.do(t, http.MethodGet, "/api/payroll/personal?month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	personal := decode[api.GroupPayrollResponse](t, rec)
	assert.Equal(t, "40000.00", personal.Total.Gross.Value)
	require.Len(t, personal.Members, 1)
}

func TestExports(t *testing.T) {
	s := newTestServer(t)
	s.createSubject(t, cafeSubject)
	s.createSubject(t, `{"id": "alice", "name": "Alice", "kind": "member", "team_id": "crew", "config": {"hourly_wage": "10000"}}`)
	s.addShift(t, "cafe", `{"startTime": "2025-03-04T09:00:00Z", "endTime": "2025-03-04T17:00:00Z"}`)

	rec := s.do(t, http.MethodGet, "/api/subjects/cafe/payroll/payslip.pdf?month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payslip-cafe-2025-03.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	for _, path := range []string{
		"/api/subjects/cafe/payroll/payroll.xlsx?month=2025-03",
		"/api/teams/crew/payroll.xlsx?month=2025-03",
	} {
		rec = s.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
	}

	rec = s.do(t, http.MethodGet, "/api/subjects/ghost/payroll/payslip.pdf?month=2025-03", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
