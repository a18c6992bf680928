// Package report renders payroll breakdowns for people: terminal tables,
// PDF payslips and Excel workbooks. Rendering only formats; every figure
// comes from the breakdown as computed.
package report

import (
	"fmt"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// Meta is the display metadata attached to a breakdown.
type Meta struct {
	Name  string
	Color string
}

// Entry pairs a breakdown with who it belongs to.
type Entry struct {
	Meta      Meta
	Breakdown payroll.Breakdown
}

// CategoryTitle is the human label of a line item.
func CategoryTitle(label payroll.CategoryLabel) string {
	switch label {
	case payroll.CategoryBase:
		return "Base pay"
	case payroll.CategoryWeekly:
		return "Weekly rest allowance"
	case payroll.CategoryNight:
		return "Night allowance"
	case payroll.CategoryOvertime:
		return "Overtime allowance"
	case payroll.CategoryHoliday:
		return "Holiday allowance"
	default:
		return string(label)
	}
}

// WeekNote describes the weekly-rest outcome of one week.
func WeekNote(w payroll.WeekSummary) string {
	if !w.Qualified {
		return fmt.Sprintf("under %s h", payroll.WeeklyThresholdHours)
	}
	note := fmt.Sprintf("(%s / %s) x %s x %s",
		w.Hours.String(), payroll.FullTimeWeeklyHours, payroll.PaidRestHours, w.ReferenceWage.Round().String())
	if w.MixedWages {
		note += " (mixed wages)"
	}
	return note
}

func money(a generic.Amount) string {
	return a.Round().String()
}

func float(a generic.Amount) float64 {
	f, _ := a.Round().Value.Float64()
	return f
}

func displayName(m Meta, b payroll.Breakdown) string {
	if m.Name != "" {
		return m.Name
	}
	return string(b.SubjectID)
}
