/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates subjects with employment configs,
	holidays, and a month of shifts that exercise specific allowances.

AVAILABLE SCENARIOS:

	two-jobs:     One person, two workplaces, night shifts and 3.3% withholding
	night-crew:   Team of three with overtime, night work and mixed wages
	holiday-rush: Rest-day and public-holiday work with the holiday allowance

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create subjects from config JSON via factory
 3. Add holidays where needed
 4. Add shifts for the current month in the handler's location

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "night-crew"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, month)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Subject and shift endpoints
  - factory/config.go: Config JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "two-jobs",
		Name:        "Two Jobs",
		Description: "A cafe with night shifts and 3.3% withholding plus a store paying weekly rest",
		Category:    "personal",
	},
	{
		ID:          "night-crew",
		Name:        "Night Crew",
		Description: "Team of three: overtime, night work, and a week with two wage rates",
		Category:    "team",
	},
	{
		ID:          "holiday-rush",
		Name:        "Holiday Rush",
		Description: "Sunday and public-holiday shifts paid at 150%",
		Category:    "personal",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context, time.Time) error
	switch req.ScenarioID {
	case "two-jobs":
		loader = h.loadTwoJobsScenario
	case "night-crew":
		loader = h.loadNightCrewScenario
	case "holiday-rush":
		loader = h.loadHolidayRushScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	now := h.Now().In(h.Parser.Location)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.Parser.Location)
	if err := loader(ctx, month); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.purgeCache(ctx)
	h.currentScenario = ""
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadTwoJobsScenario(ctx context.Context, month time.Time) error {
	if err := h.createSubjectFromJSON(ctx, "cafe", "Corner Cafe", "#f59e0b", "", `{
		"hourly_wage": "10030",
		"night_allowance": true,
		"weekly_allowance": true,
		"tax_mode": "business_income"
	}`); err != nil {
		return err
	}
	if err := h.createSubjectFromJSON(ctx, "store", "24h Store", "#3b82f6", "", `{
		"hourly_wage": "9860",
		"weekly_allowance": true,
		"tax_mode": "none"
	}`); err != nil {
		return err
	}

	var shifts []factory.ShiftJSON
	// Cafe: Mon/Wed/Fri evenings running past midnight
	for week := 0; week < 4; week++ {
		for _, day := range []int{0, 2, 4} {
			shifts = append(shifts, shiftAt("cafe", month, week*7+day, "18:00", "01:00", nil))
		}
	}
	// Store: Saturday mornings, short enough that some weeks miss the threshold
	for week := 0; week < 4; week++ {
		shifts = append(shifts, shiftAt("store", month, week*7+5, "08:00", "14:00", nil))
	}
	return h.saveShifts(ctx, shifts)
}

func (h *Handler) loadNightCrewScenario(ctx context.Context, month time.Time) error {
	config := `{
		"hourly_wage": "12000",
		"weekly_allowance": true,
		"night_allowance": true,
		"overtime_allowance": true,
		"tax_mode": "social_insurance"
	}`
	members := []struct{ id, name, color string }{
		{"alice", "Alice", "#10b981"},
		{"bora", "Bora", "#8b5cf6"},
		{"chen", "Chen", "#ef4444"},
	}
	for _, m := range members {
		if err := h.createSubjectFromJSON(ctx, m.id, m.name, m.color, "night-crew", config); err != nil {
			return err
		}
	}

	lead := decimal.NewFromInt(15000)
	var shifts []factory.ShiftJSON
	for week := 0; week < 4; week++ {
		// Alice: long closing shifts, overtime every night
		for _, day := range []int{0, 1, 2} {
			shifts = append(shifts, shiftAt("alice", month, week*7+day, "16:00", "02:00", nil))
		}
		// Bora: overnight, fully inside the night window
		for _, day := range []int{3, 4} {
			shifts = append(shifts, shiftAt("bora", month, week*7+day, "22:00", "06:00", nil))
		}
		// Chen: day shifts; shift lead (higher wage) on Fridays
		shifts = append(shifts, shiftAt("chen", month, week*7+1, "09:00", "17:00", nil))
		shifts = append(shifts, shiftAt("chen", month, week*7+4, "09:00", "17:00", &lead))
	}
	return h.saveShifts(ctx, shifts)
}

func (h *Handler) loadHolidayRushScenario(ctx context.Context, month time.Time) error {
	if err := h.createSubjectFromJSON(ctx, "bakery", "Morning Bakery", "#ec4899", "", `{
		"hourly_wage": "11000",
		"holiday_allowance": true,
		"weekly_allowance": true,
		"rest_day": "sunday",
		"tax_mode": "custom",
		"tax_rate": "2.5"
	}`); err != nil {
		return err
	}

	holiday := generic.Holiday{
		ID:        "holiday-bakery-mid",
		SubjectID: "bakery",
		Date:      generic.DateOf(month.AddDate(0, 0, 14)),
		Name:      "Town Festival",
	}
	if err := h.Store.SaveHoliday(ctx, holiday); err != nil {
		return err
	}

	var shifts []factory.ShiftJSON
	for day := 0; day < month.AddDate(0, 1, -1).Day(); day++ {
		date := month.AddDate(0, 0, day)
		if date.Weekday() == time.Sunday || day == 14 || date.Weekday() == time.Saturday {
			shifts = append(shifts, shiftAt("bakery", month, day, "06:00", "12:00", nil))
		}
	}
	return h.saveShifts(ctx, shifts)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createSubjectFromJSON(ctx context.Context, id, name, color, team, configJSON string) error {
	cfg, err := factory.ParseConfig([]byte(configJSON))
	if err != nil {
		return fmt.Errorf("subject %s: %w", id, err)
	}
	kind := payroll.SubjectWorkplace
	if team != "" {
		kind = payroll.SubjectMember
	}
	return h.Store.SaveSubject(ctx, payroll.Subject{
		ID:     generic.SubjectID(id),
		Name:   name,
		Color:  color,
		Kind:   kind,
		TeamID: generic.TeamID(team),
		Config: cfg,
	})
}

func (h *Handler) saveShifts(ctx context.Context, records []factory.ShiftJSON) error {
	for _, shift := range h.Parser.Shifts(records) {
		if err := h.Store.SaveShift(ctx, shift); err != nil {
			return err
		}
	}
	return nil
}

// shiftAt builds a shift record on the given day offset of the month with
// wall-clock start and end. An end before the start crosses midnight.
func shiftAt(subject string, month time.Time, dayOffset int, start, end string, wage *decimal.Decimal) factory.ShiftJSON {
	date := month.AddDate(0, 0, dayOffset).Format("2006-01-02")
	return factory.ShiftJSON{
		ID:         fmt.Sprintf("%s-%s-%s", subject, date, start),
		SubjectID:  subject,
		StartTime:  date + "T" + start,
		EndTime:    date + "T" + end,
		HourlyWage: wage,
	}
}
