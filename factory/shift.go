package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// ShiftJSON is a shift as exchanged with the scheduling side.
type ShiftJSON struct {
	ID         string           `json:"id"`
	SubjectID  string           `json:"subjectId,omitempty"`
	Name       string           `json:"name,omitempty"`
	StartTime  string           `json:"startTime"`
	EndTime    string           `json:"endTime"`
	HourlyWage *decimal.Decimal `json:"hourlyWage,omitempty"`
}

// Offset-less layouts tried in order after RFC 3339. All are local
// wall-clock times read in the parser's location.
var shiftTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ShiftParser reads shift timestamps in a fixed location.
type ShiftParser struct {
	Location *time.Location
}

func NewShiftParser(loc *time.Location) *ShiftParser {
	if loc == nil {
		loc = time.UTC
	}
	return &ShiftParser{Location: loc}
}

// ParseTime parses an ISO-8601 timestamp. Values with an offset keep it;
// values without one are read in the parser's location.
func (p *ShiftParser) ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range shiftTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, p.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing time %q: not ISO-8601", s)
}

// Shift converts one record. It never fails: unreadable timestamps are
// recorded in ParseError for the aggregator to report.
func (p *ShiftParser) Shift(sj ShiftJSON) payroll.Shift {
	shift := payroll.Shift{
		ID:        generic.ShiftID(sj.ID),
		SubjectID: generic.SubjectID(sj.SubjectID),
		Name:      sj.Name,
	}
	if sj.HourlyWage != nil {
		shift.HourlyWage = decimal.NewNullDecimal(*sj.HourlyWage)
	}

	start, err := p.ParseTime(sj.StartTime)
	if err != nil {
		shift.ParseError = "startTime: " + err.Error()
		return shift
	}
	end, err := p.ParseTime(sj.EndTime)
	if err != nil {
		shift.ParseError = "endTime: " + err.Error()
		return shift
	}
	shift.Start = start
	shift.End = end.In(start.Location())
	return shift
}

// ParseShifts parses a JSON array of shifts.
func (p *ShiftParser) ParseShifts(data []byte) ([]payroll.Shift, error) {
	var records []ShiftJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse shifts JSON: %w", err)
	}
	return p.Shifts(records), nil
}

func (p *ShiftParser) Shifts(records []ShiftJSON) []payroll.Shift {
	shifts := make([]payroll.Shift, len(records))
	for i, r := range records {
		shifts[i] = p.Shift(r)
	}
	return shifts
}

// ShiftToJSON renders a shift with RFC 3339 timestamps.
func ShiftToJSON(s payroll.Shift) ShiftJSON {
	sj := ShiftJSON{
		ID:        string(s.ID),
		SubjectID: string(s.SubjectID),
		Name:      s.Name,
		StartTime: s.Start.Format(time.RFC3339),
		EndTime:   s.End.Format(time.RFC3339),
	}
	if s.HourlyWage.Valid {
		w := s.HourlyWage.Decimal
		sj.HourlyWage = &w
	}
	return sj
}
