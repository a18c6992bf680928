package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// OvertimeThresholdHours is the per-shift length after which every further
// hour earns the overtime differential.
var OvertimeThresholdHours = decimal.NewFromInt(8)

// =============================================================================
// SHIFT PAY - Per-shift pricing
// =============================================================================

// ShiftPay is one shift priced by the RuleEngine. Amounts are unrounded.
type ShiftPay struct {
	ShiftID generic.ShiftID
	Date    generic.TimePoint // calendar date of the shift's start
	Wage    decimal.Decimal

	Hours         decimal.Decimal
	NightHours    decimal.Decimal
	OvertimeHours decimal.Decimal
	HolidayHours  decimal.Decimal

	Base     decimal.Decimal
	Night    decimal.Decimal
	Overtime decimal.Decimal
	Holiday  decimal.Decimal
}

// Total is the shift's pay before the weekly-rest allowance.
func (p ShiftPay) Total() decimal.Decimal {
	return p.Base.Add(p.Night).Add(p.Overtime).Add(p.Holiday)
}

// =============================================================================
// RULE ENGINE
// =============================================================================

// RuleEngine applies the per-shift differentials of one subject's config.
// The three differentials are independent and additive: a 9h night shift on
// a holiday earns all three on top of its base pay.
type RuleEngine struct {
	SubjectID generic.SubjectID
	Config    EmploymentConfig
	Holidays  generic.HolidayCalendar
}

func NewRuleEngine(subjectID generic.SubjectID, cfg EmploymentConfig, holidays generic.HolidayCalendar) *RuleEngine {
	if holidays == nil {
		holidays = &generic.DefaultHolidayCalendar{}
	}
	return &RuleEngine{SubjectID: subjectID, Config: cfg, Holidays: holidays}
}

// IsDesignatedHoliday reports whether work on date earns the holiday
// differential: it is the configured rest day or a calendar holiday.
func (e *RuleEngine) IsDesignatedHoliday(date generic.TimePoint) bool {
	if date.Weekday() == e.Config.RestDay {
		return true
	}
	return e.Holidays.IsHoliday(e.SubjectID, date)
}

// Evaluate prices a shift whose interval is already known to be positive.
// Hours not earning a differential are reported as zero.
func (e *RuleEngine) Evaluate(shift Shift, wage decimal.Decimal) ShiftPay {
	start, end := NormalizeInterval(shift.Start, shift.End)
	hours := generic.HoursOf(end.Sub(start)).Value

	pay := ShiftPay{
		ShiftID:       shift.ID,
		Date:          generic.DateOf(start),
		Wage:          wage,
		Hours:         hours,
		NightHours:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		HolidayHours:  decimal.Zero,
		Base:          hours.Mul(wage),
		Night:         decimal.Zero,
		Overtime:      decimal.Zero,
		Holiday:       decimal.Zero,
	}

	cfg := e.Config
	if cfg.NightAllowanceEnabled {
		pay.NightHours = NightHours(start, end)
		pay.Night = pay.NightHours.Mul(wage).Mul(differential(cfg.NightRatePercent))
	}
	if cfg.OvertimeAllowanceEnabled && hours.GreaterThan(OvertimeThresholdHours) {
		pay.OvertimeHours = hours.Sub(OvertimeThresholdHours)
		pay.Overtime = pay.OvertimeHours.Mul(wage).Mul(differential(cfg.OvertimeRatePercent))
	}
	if cfg.HolidayAllowanceEnabled && e.IsDesignatedHoliday(pay.Date) {
		pay.HolidayHours = hours
		pay.Holiday = hours.Mul(wage).Mul(differential(cfg.HolidayRatePercent))
	}
	return pay
}
