/*
handlers.go - HTTP API handlers for the wage engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll service.

ENDPOINTS:
  Compute:
    POST   /api/payroll/compute                        Stateless compute from body

  Subjects:
    GET    /api/subjects                               List subjects (?kind=)
    POST   /api/subjects                               Create subject
    GET    /api/subjects/{id}                          Get subject
    PUT    /api/subjects/{id}                          Replace subject
    DELETE /api/subjects/{id}                          Delete subject and its shifts

  Shifts:
    GET    /api/subjects/{id}/shifts                   Shifts of a month (?month=)
    POST   /api/subjects/{id}/shifts                   Add or replace a shift
    DELETE /api/shifts/{id}                            Delete a shift

  Payroll:
    GET    /api/subjects/{id}/payroll                  Breakdown (?month=)
    GET    /api/subjects/{id}/payroll/payslip.pdf      PDF payslip
    GET    /api/subjects/{id}/payroll/payroll.xlsx     Excel workbook
    GET    /api/teams/{team}/payroll                   Team total
    GET    /api/teams/{team}/payroll.xlsx              Team workbook
    GET    /api/payroll/personal                       Total across workplaces
    GET    /api/payroll/runs                           Month-close history
    POST   /api/payroll/close                          Close a month

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call the payroll service
  4. Attach subject metadata and serialize the response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid period, config or shift interval
  - 404: Subject or shift not found
  - 409: Shift edit inside a closed period
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Month-close runs
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// CacheInvalidator drops memoized breakdowns. Shift and config edits change
// the fingerprint on their own; subject deletes and holiday edits do not.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, subjectID generic.SubjectID) error
	Purge(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *payroll.Service
	Cache   CacheInvalidator // optional
	Parser  *factory.ShiftParser
	Closer  *PayrollCloseScheduler
	Logger  *slog.Logger

	// Now is the clock used for the default month.
	Now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires a handler over a store and a service. The service's
// aggregator should read holidays from the same store.
func NewHandler(store *sqlite.Store, service *payroll.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Service: service,
		Parser:  factory.NewShiftParser(time.UTC),
		Closer:  NewPayrollCloseScheduler(store, service, logger),
		Logger:  logger,
		Now:     time.Now,
	}
}

// =============================================================================
// COMPUTE
// =============================================================================

// ComputePayroll runs the engine on an inline config and shift list.
// POST /api/payroll/compute
func (h *Handler) ComputePayroll(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := factory.ConfigFromJSON(req.Config)
	if err != nil {
		writeServiceError(w, "Invalid config", err)
		return
	}

	period, err := h.resolvePeriod(req.Month, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeServiceError(w, "Invalid period", err)
		return
	}

	breakdown, err := h.Service.Aggregator.Compute(payroll.Input{
		SubjectID: generic.SubjectID(req.SubjectID),
		Period:    period,
		Config:    cfg,
		Shifts:    h.Parser.Shifts(req.Shifts),
	})
	if err != nil {
		writeServiceError(w, "Failed to compute payroll", err)
		return
	}

	writeJSON(w, http.StatusOK, toBreakdownDTO(breakdown))
}

// =============================================================================
// SUBJECT HANDLERS
// =============================================================================

// ListSubjects returns all subjects, optionally filtered by kind.
// GET /api/subjects?kind=workplace
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Store.ListSubjects(r.Context(), payroll.SubjectKind(r.URL.Query().Get("kind")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subjects", err)
		return
	}

	dtos := make([]SubjectDTO, 0, len(subjects))
	for _, s := range subjects {
		dtos = append(dtos, toSubjectDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSubject returns a single subject.
// GET /api/subjects/{id}
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := h.Store.GetSubject(r.Context(), generic.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to get subject", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubjectDTO(*subject))
}

// CreateSubject creates a new subject.
// POST /api/subjects
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	subject, err := subjectFromRequest(req)
	if err != nil {
		writeServiceError(w, "Invalid subject", err)
		return
	}
	if err := h.Store.SaveSubject(r.Context(), subject); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create subject", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubjectDTO(subject))
}

// UpdateSubject replaces an existing subject's metadata and config.
// PUT /api/subjects/{id}
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.SubjectID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetSubject(ctx, id); err != nil {
		writeServiceError(w, "Failed to get subject", err)
		return
	}

	var req SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = string(id)

	subject, err := subjectFromRequest(req)
	if err != nil {
		writeServiceError(w, "Invalid subject", err)
		return
	}
	if err := h.Store.SaveSubject(ctx, subject); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update subject", err)
		return
	}

	writeJSON(w, http.StatusOK, toSubjectDTO(subject))
}

// DeleteSubject removes a subject, its shifts, and its cached payroll.
// DELETE /api/subjects/{id}
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.SubjectID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteSubject(ctx, id); err != nil {
		writeServiceError(w, "Failed to delete subject", err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, id); err != nil {
			h.Logger.Warn("cache invalidation failed", slog.String("subject", string(id)), slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func subjectFromRequest(req SubjectRequest) (payroll.Subject, error) {
	kind := payroll.SubjectKind(req.Kind)
	switch kind {
	case "":
		kind = payroll.SubjectWorkplace
	case payroll.SubjectWorkplace, payroll.SubjectMember:
	default:
		return payroll.Subject{}, fmt.Errorf("%w: unknown kind %q", generic.ErrInvalidConfig, req.Kind)
	}
	if req.Name == "" {
		return payroll.Subject{}, fmt.Errorf("%w: name is required", generic.ErrInvalidConfig)
	}

	cfg, err := factory.ConfigFromJSON(req.Config)
	if err != nil {
		return payroll.Subject{}, err
	}
	return payroll.Subject{
		ID:     generic.SubjectID(req.ID),
		Name:   req.Name,
		Color:  req.Color,
		Kind:   kind,
		TeamID: generic.TeamID(req.TeamID),
		Config: cfg,
	}, nil
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns the subject's shifts starting in a month.
// GET /api/subjects/{id}/shifts?month=2025-03
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.SubjectID(chi.URLParam(r, "id"))

	period, err := h.resolvePeriod(r.URL.Query().Get("month"), "", "")
	if err != nil {
		writeServiceError(w, "Invalid period", err)
		return
	}
	if _, err := h.Store.GetSubject(ctx, id); err != nil {
		writeServiceError(w, "Failed to get subject", err)
		return
	}

	shifts, err := h.Store.ListShifts(ctx, id, period.Start, period.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]factory.ShiftJSON, 0, len(shifts))
	for _, s := range shifts {
		dtos = append(dtos, factory.ShiftToJSON(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShift stores a shift for the subject. Unreadable timestamps and
// zero-length intervals are rejected here rather than stored.
// POST /api/subjects/{id}/shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := generic.SubjectID(chi.URLParam(r, "id"))

	var req factory.ShiftJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.SubjectID = string(subjectID)

	shift := h.Parser.Shift(req)
	if shift.ParseError != "" {
		writeServiceError(w, "Invalid shift", fmt.Errorf("%w: %s", generic.ErrInvalidInterval, shift.ParseError))
		return
	}
	if start, end := payroll.NormalizeInterval(shift.Start, shift.End); !end.After(start) {
		writeServiceError(w, "Invalid shift", fmt.Errorf("%w: zero-length interval", generic.ErrInvalidInterval))
		return
	}

	if err := h.ensureOpen(ctx, subjectID, shift.Start); err != nil {
		writeServiceError(w, "Cannot add shift", err)
		return
	}
	if existing, err := h.Store.GetShift(ctx, shift.ID); err == nil {
		if err := h.ensureOpen(ctx, existing.SubjectID, existing.Start); err != nil {
			writeServiceError(w, "Cannot replace shift", err)
			return
		}
	}

	if err := h.Store.SaveShift(ctx, shift); err != nil {
		writeServiceError(w, "Failed to save shift", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ShiftToJSON(shift))
}

// DeleteShift removes a shift.
// DELETE /api/shifts/{id}
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ShiftID(chi.URLParam(r, "id"))

	shift, err := h.Store.GetShift(ctx, id)
	if err != nil {
		writeServiceError(w, "Failed to get shift", err)
		return
	}
	if err := h.ensureOpen(ctx, shift.SubjectID, shift.Start); err != nil {
		writeServiceError(w, "Cannot delete shift", err)
		return
	}
	if err := h.Store.DeleteShift(ctx, id); err != nil {
		writeServiceError(w, "Failed to delete shift", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// ensureOpen rejects edits to shifts whose month has been closed.
func (h *Handler) ensureOpen(ctx context.Context, subjectID generic.SubjectID, start time.Time) error {
	period := generic.MonthPeriod(start.Year(), start.Month())
	closed, err := h.Store.IsPeriodClosed(ctx, subjectID, period)
	if err != nil {
		return err
	}
	if closed {
		return fmt.Errorf("%w: %s %s", generic.ErrPeriodClosed, subjectID, period.Label())
	}
	return nil
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetSubjectPayroll returns a subject's breakdown for a month.
// GET /api/subjects/{id}/payroll?month=2025-03
func (h *Handler) GetSubjectPayroll(w http.ResponseWriter, r *http.Request) {
	resp, err := h.subjectPayroll(r)
	if err != nil {
		writeServiceError(w, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPayslip renders the subject's breakdown as a PDF payslip.
// GET /api/subjects/{id}/payroll/payslip.pdf?month=2025-03
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	subject, breakdown, err := h.loadSubjectPayroll(r)
	if err != nil {
		writeServiceError(w, "Failed to compute payroll", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePayslip(&buf, metaOf(subject), breakdown); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render payslip", err)
		return
	}
	writeAttachment(w, "application/pdf", fmt.Sprintf("payslip-%s-%s.pdf", subject.ID, breakdown.Period.Label()), buf.Bytes())
}

// GetWorkbook exports the subject's breakdown as an Excel workbook.
// GET /api/subjects/{id}/payroll/payroll.xlsx?month=2025-03
func (h *Handler) GetWorkbook(w http.ResponseWriter, r *http.Request) {
	subject, breakdown, err := h.loadSubjectPayroll(r)
	if err != nil {
		writeServiceError(w, "Failed to compute payroll", err)
		return
	}

	entries := []report.Entry{{Meta: metaOf(subject), Breakdown: breakdown}}
	h.writeWorkbook(w, fmt.Sprintf("payroll-%s-%s.xlsx", subject.ID, breakdown.Period.Label()), entries)
}

// GetTeamPayroll returns the team total and every member's breakdown.
// GET /api/teams/{team}/payroll?month=2025-03
func (h *Handler) GetTeamPayroll(w http.ResponseWriter, r *http.Request) {
	resp, _, err := h.teamPayroll(r)
	if err != nil {
		writeServiceError(w, "Failed to compute team payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTeamWorkbook exports one row per team member.
// GET /api/teams/{team}/payroll.xlsx?month=2025-03
func (h *Handler) GetTeamWorkbook(w http.ResponseWriter, r *http.Request) {
	resp, entries, err := h.teamPayroll(r)
	if err != nil {
		writeServiceError(w, "Failed to compute team payroll", err)
		return
	}
	h.writeWorkbook(w, fmt.Sprintf("payroll-%s-%s.xlsx", resp.GroupID, resp.Period), entries)
}

// GetPersonalPayroll sums every workplace subject for a month.
// GET /api/payroll/personal?month=2025-03
func (h *Handler) GetPersonalPayroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := h.resolvePeriod(r.URL.Query().Get("month"), "", "")
	if err != nil {
		writeServiceError(w, "Invalid period", err)
		return
	}

	workplaces, err := h.Store.ListSubjects(ctx, payroll.SubjectWorkplace)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workplaces", err)
		return
	}

	resp, _, err := h.groupPayroll(ctx, "personal", workplaces, period)
	if err != nil {
		writeServiceError(w, "Failed to compute personal payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) subjectPayroll(r *http.Request) (PayrollResponse, error) {
	subject, breakdown, err := h.loadSubjectPayroll(r)
	if err != nil {
		return PayrollResponse{}, err
	}
	closed, err := h.Store.IsPeriodClosed(r.Context(), subject.ID, breakdown.Period)
	if err != nil {
		return PayrollResponse{}, err
	}
	return PayrollResponse{
		Subject:   toSubjectDTO(subject),
		Breakdown: toBreakdownDTO(breakdown),
		Closed:    closed,
	}, nil
}

func (h *Handler) loadSubjectPayroll(r *http.Request) (payroll.Subject, payroll.Breakdown, error) {
	ctx := r.Context()
	id := generic.SubjectID(chi.URLParam(r, "id"))

	period, err := h.resolvePeriod(r.URL.Query().Get("month"), "", "")
	if err != nil {
		return payroll.Subject{}, payroll.Breakdown{}, err
	}
	subject, err := h.Store.GetSubject(ctx, id)
	if err != nil {
		return payroll.Subject{}, payroll.Breakdown{}, err
	}
	breakdown, err := h.Service.SubjectPayroll(ctx, id, period)
	if err != nil {
		return payroll.Subject{}, payroll.Breakdown{}, err
	}
	return *subject, breakdown, nil
}

func (h *Handler) teamPayroll(r *http.Request) (GroupPayrollResponse, []report.Entry, error) {
	ctx := r.Context()
	team := generic.TeamID(chi.URLParam(r, "team"))

	period, err := h.resolvePeriod(r.URL.Query().Get("month"), "", "")
	if err != nil {
		return GroupPayrollResponse{}, nil, err
	}
	members, err := h.Store.ListSubjectsByTeam(ctx, team)
	if err != nil {
		return GroupPayrollResponse{}, nil, err
	}
	return h.groupPayroll(ctx, generic.SubjectID(team), members, period)
}

func (h *Handler) groupPayroll(ctx context.Context, groupID generic.SubjectID, subjects []payroll.Subject, period generic.Period) (GroupPayrollResponse, []report.Entry, error) {
	ids := make([]generic.SubjectID, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}

	total, parts, err := h.Service.GroupPayroll(ctx, groupID, ids, period)
	if err != nil {
		return GroupPayrollResponse{}, nil, err
	}

	resp := GroupPayrollResponse{
		GroupID: string(groupID),
		Period:  period.Label(),
		Total:   toBreakdownDTO(total),
		Members: make([]PayrollResponse, 0, len(parts)),
	}
	entries := make([]report.Entry, 0, len(parts))
	for i, b := range parts {
		closed, err := h.Store.IsPeriodClosed(ctx, subjects[i].ID, period)
		if err != nil {
			return GroupPayrollResponse{}, nil, err
		}
		resp.Members = append(resp.Members, PayrollResponse{
			Subject:   toSubjectDTO(subjects[i]),
			Breakdown: toBreakdownDTO(b),
			Closed:    closed,
		})
		entries = append(entries, report.Entry{Meta: metaOf(subjects[i]), Breakdown: b})
	}
	return resp, entries, nil
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, filename string, entries []report.Entry) {
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render workbook", err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, buf.Bytes())
}

// =============================================================================
// PAYROLL RUN ENDPOINTS
// =============================================================================

// ListPayrollRuns returns month-close history.
// GET /api/payroll/runs?status=completed
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.GetPayrollRuns(r.Context(), payroll.RunStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payroll runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// ClosePayroll closes a finished month for every subject.
// POST /api/payroll/close
func (h *Handler) ClosePayroll(w http.ResponseWriter, r *http.Request) {
	var req ClosePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month == "" {
		writeError(w, http.StatusBadRequest, "month is required (YYYY-MM)", nil)
		return
	}
	period, err := generic.ParseMonth(req.Month)
	if err != nil {
		writeServiceError(w, "Invalid period", err)
		return
	}

	summary, err := h.Closer.ClosePeriod(r.Context(), period)
	if err != nil {
		writeServiceError(w, "Failed to close payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns all holidays, or those visible to one subject.
// GET /api/holidays?subject_id=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.GetAllHolidays(r.Context(), generic.SubjectID(r.URL.Query().Get("subject_id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{
		ID:        uuid.NewString(),
		SubjectID: generic.SubjectID(req.SubjectID),
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(ctx, holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	h.purgeCache(ctx)

	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Store.DeleteHoliday(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	h.purgeCache(ctx)

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// defaultHolidays are the fixed-date public holidays added by
// AddDefaultHolidays. Lunar holidays move every year and are left to the
// caller.
var defaultHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "New Year's Day"},
	{time.March, 1, "Independence Movement Day"},
	{time.May, 5, "Children's Day"},
	{time.June, 6, "Memorial Day"},
	{time.August, 15, "Liberation Day"},
	{time.October, 3, "National Foundation Day"},
	{time.October, 9, "Hangul Day"},
	{time.December, 25, "Christmas Day"},
}

// AddDefaultHolidays adds the fixed-date public holidays as recurring
// entries, globally or for one subject.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		SubjectID string `json:"subject_id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	year := h.Now().Year()
	for _, d := range defaultHolidays {
		holiday := generic.Holiday{
			ID:        fmt.Sprintf("holiday-%s-%02d%02d", req.SubjectID, d.month, d.day),
			SubjectID: generic.SubjectID(req.SubjectID),
			Date:      generic.NewTimePoint(year, d.month, d.day),
			Name:      d.name,
			Recurring: true,
		}
		if err := h.Store.SaveHoliday(ctx, holiday); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
			return
		}
	}
	h.purgeCache(ctx)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"count":  len(defaultHolidays),
	})
}

func (h *Handler) purgeCache(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		h.Logger.Warn("cache purge failed", slog.Any("error", err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// resolvePeriod reads either a YYYY-MM month or an explicit start/end pair.
// With neither, the current month in the parser's location is used.
func (h *Handler) resolvePeriod(month, start, end string) (generic.Period, error) {
	switch {
	case month != "":
		return generic.ParseMonth(month)
	case start != "" || end != "":
		from, err := generic.ParseDate(start)
		if err != nil {
			return generic.Period{}, fmt.Errorf("%w: period_start: %v", generic.ErrInvalidPeriod, err)
		}
		to, err := generic.ParseDate(end)
		if err != nil {
			return generic.Period{}, fmt.Errorf("%w: period_end: %v", generic.ErrInvalidPeriod, err)
		}
		period := generic.Period{Start: from, End: to}
		return period, period.Validate()
	default:
		now := h.Now().In(h.Parser.Location)
		return generic.MonthPeriod(now.Year(), now.Month()), nil
	}
}

func metaOf(s payroll.Subject) report.Meta {
	return report.Meta{Name: s.Name, Color: s.Color}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
