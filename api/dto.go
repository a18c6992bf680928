/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's breakdown from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Every amount is emitted twice: a fixed two-decimal string ("115000.00")
  and the integer count of minor units (11500000). Clients must not use
  floats for money.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON type
  - factory/shift.go: ShiftJSON type
*/
package api

import (
	"time"

	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/report"
)

// =============================================================================
// SUBJECTS
// =============================================================================

// SubjectDTO represents a workplace or team member in API responses.
type SubjectDTO struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Color  string             `json:"color,omitempty"`
	Kind   string             `json:"kind"`
	TeamID string             `json:"team_id,omitempty"`
	Config factory.ConfigJSON `json:"config"`
}

// SubjectRequest creates or replaces a subject. ID is generated when empty.
type SubjectRequest struct {
	ID     string             `json:"id,omitempty"`
	Name   string             `json:"name"`
	Color  string             `json:"color,omitempty"`
	Kind   string             `json:"kind"`
	TeamID string             `json:"team_id,omitempty"`
	Config factory.ConfigJSON `json:"config"`
}

func toSubjectDTO(s payroll.Subject) SubjectDTO {
	return SubjectDTO{
		ID:     string(s.ID),
		Name:   s.Name,
		Color:  s.Color,
		Kind:   string(s.Kind),
		TeamID: string(s.TeamID),
		Config: factory.ConfigToJSON(s.Config),
	}
}

// =============================================================================
// BREAKDOWN
// =============================================================================

// MoneyDTO is an amount as a decimal string plus integer minor units.
type MoneyDTO struct {
	Value string `json:"value"`
	Minor int64  `json:"minor"`
}

func toMoney(a generic.Amount) MoneyDTO {
	return MoneyDTO{Value: a.String(), Minor: a.MinorUnits()}
}

type CategoryDTO struct {
	Label         string   `json:"label"`
	Title         string   `json:"title"`
	Amount        MoneyDTO `json:"amount"`
	Hours         string   `json:"hours"`
	EffectiveRate string   `json:"effective_rate"`
}

type WeekDTO struct {
	WeekStart     string   `json:"week_start"`
	Hours         string   `json:"hours"`
	Qualified     bool     `json:"qualified"`
	PaidHours     string   `json:"paid_hours"`
	ReferenceWage MoneyDTO `json:"reference_wage"`
	Amount        MoneyDTO `json:"amount"`
	MixedWages    bool     `json:"mixed_wages"`
	Note          string   `json:"note"`
}

type WarningDTO struct {
	ShiftID string `json:"shift_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BreakdownDTO is a payroll breakdown in API responses.
type BreakdownDTO struct {
	SubjectID      string        `json:"subject_id"`
	PeriodStart    string        `json:"period_start"`
	PeriodEnd      string        `json:"period_end"`
	Categories     []CategoryDTO `json:"categories"`
	TotalHours     string        `json:"total_hours"`
	ShiftCount     int           `json:"shift_count"`
	Gross          MoneyDTO      `json:"gross"`
	TaxRatePercent string        `json:"tax_rate_percent"`
	Tax            MoneyDTO      `json:"tax"`
	Net            MoneyDTO      `json:"net"`
	Weeks          []WeekDTO     `json:"weeks"`
	Warnings       []WarningDTO  `json:"warnings"`
}

func toBreakdownDTO(b payroll.Breakdown) BreakdownDTO {
	dto := BreakdownDTO{
		SubjectID:      string(b.SubjectID),
		PeriodStart:    b.Period.Start.String(),
		PeriodEnd:      b.Period.End.String(),
		Categories:     make([]CategoryDTO, 0, len(b.Categories)),
		TotalHours:     b.TotalHours.String(),
		ShiftCount:     b.ShiftCount,
		Gross:          toMoney(b.Gross),
		TaxRatePercent: b.TaxRatePercent.String(),
		Tax:            toMoney(b.Tax),
		Net:            toMoney(b.Net),
		Weeks:          make([]WeekDTO, 0, len(b.Weeks)),
		Warnings:       make([]WarningDTO, 0, len(b.Warnings)),
	}
	for _, c := range b.Categories {
		dto.Categories = append(dto.Categories, CategoryDTO{
			Label:         string(c.Label),
			Title:         report.CategoryTitle(c.Label),
			Amount:        toMoney(c.Amount),
			Hours:         c.Hours.String(),
			EffectiveRate: c.EffectiveRate.StringFixed(generic.MinorUnitPlaces),
		})
	}
	for _, w := range b.Weeks {
		dto.Weeks = append(dto.Weeks, WeekDTO{
			WeekStart:     w.WeekStart.String(),
			Hours:         w.Hours.String(),
			Qualified:     w.Qualified,
			PaidHours:     w.PaidHours.String(),
			ReferenceWage: toMoney(w.ReferenceWage),
			Amount:        toMoney(w.Amount),
			MixedWages:    w.MixedWages,
			Note:          report.WeekNote(w),
		})
	}
	for _, w := range b.Warnings {
		dto.Warnings = append(dto.Warnings, WarningDTO{
			ShiftID: string(w.ShiftID),
			Code:    w.Code(),
			Message: w.Error(),
		})
	}
	return dto
}

// PayrollResponse is one subject's payroll with its display metadata.
type PayrollResponse struct {
	Subject   SubjectDTO   `json:"subject"`
	Breakdown BreakdownDTO `json:"breakdown"`
	Closed    bool         `json:"closed"`
}

// GroupPayrollResponse is a summed total plus the per-subject payrolls.
type GroupPayrollResponse struct {
	GroupID string            `json:"group_id"`
	Period  string            `json:"period"`
	Total   BreakdownDTO      `json:"total"`
	Members []PayrollResponse `json:"members"`
}

// ComputeRequest is a stateless computation: config and shifts are passed
// inline and nothing is stored.
type ComputeRequest struct {
	SubjectID   string              `json:"subject_id,omitempty"`
	Month       string              `json:"month,omitempty"`
	PeriodStart string              `json:"period_start,omitempty"`
	PeriodEnd   string              `json:"period_end,omitempty"`
	Config      factory.ConfigJSON  `json:"config"`
	Shifts      []factory.ShiftJSON `json:"shifts"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

type CreateHolidayRequest struct {
	SubjectID string `json:"subject_id,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		SubjectID: string(h.SubjectID),
		Date:      h.Date.String(),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

type RunDTO struct {
	ID          string   `json:"id"`
	SubjectID   string   `json:"subject_id"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	Status      string   `json:"status"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Gross       MoneyDTO `json:"gross"`
	Tax         MoneyDTO `json:"tax"`
	Net         MoneyDTO `json:"net"`
	Warnings    int      `json:"warnings"`
	Error       string   `json:"error,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

func toRunDTO(r payroll.Run) RunDTO {
	dto := RunDTO{
		ID:          r.ID,
		SubjectID:   string(r.SubjectID),
		PeriodStart: r.Period.Start.String(),
		PeriodEnd:   r.Period.End.String(),
		Status:      string(r.Status),
		Fingerprint: r.Fingerprint,
		Gross:       toMoney(r.Gross),
		Tax:         toMoney(r.Tax),
		Net:         toMoney(r.Net),
		Warnings:    r.Warnings,
		Error:       r.Error,
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// ClosePayrollRequest closes a month for every subject.
type ClosePayrollRequest struct {
	Month string `json:"month"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
