package generic

import (
	"encoding/json"
	"time"
)

// =============================================================================
// TIME POINT - Calendar-day abstraction used for periods, weeks and holidays
// =============================================================================

// TimePoint is a calendar date. Shift instants keep their full time.Time;
// TimePoint is what they collapse to when bucketed into days, weeks and months.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format("2006-01-02")
}

func (tp TimePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(tp.String())
}

func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// StartOfWeek returns the first day of the week containing tp, where weeks
// begin on weekStart.
func StartOfWeek(tp TimePoint, weekStart time.Weekday) TimePoint {
	offset := (int(tp.Weekday()) - int(weekStart) + 7) % 7
	return tp.AddDays(-offset)
}

// =============================================================================
// HOLIDAY CALENDAR - Subject-specific and global holidays
// =============================================================================

// Holiday is a designated non-working day. Work on it earns the holiday
// differential when the subject enables it.
type Holiday struct {
	ID        string
	SubjectID SubjectID // Empty = global
	Date      TimePoint
	Name      string
	Recurring bool // same month/day every year
}

// HolidayCalendar provides holiday lookup.
type HolidayCalendar interface {
	// IsHoliday checks subject-specific holidays first, then global ones.
	IsHoliday(subjectID SubjectID, date TimePoint) bool

	// GetHolidays returns subject and global holidays in a year.
	GetHolidays(subjectID SubjectID, year int) []Holiday
}

// DefaultHolidayCalendar is a no-op calendar: only the rest day counts.
type DefaultHolidayCalendar struct{}

func (d *DefaultHolidayCalendar) IsHoliday(SubjectID, TimePoint) bool  { return false }
func (d *DefaultHolidayCalendar) GetHolidays(SubjectID, int) []Holiday { return nil }

// StaticHolidayCalendar is an in-memory calendar, handy for tests and the CLI.
type StaticHolidayCalendar struct {
	Holidays []Holiday
}

func (c *StaticHolidayCalendar) IsHoliday(subjectID SubjectID, date TimePoint) bool {
	for _, h := range c.Holidays {
		if h.SubjectID != "" && h.SubjectID != subjectID {
			continue
		}
		if h.Recurring {
			if h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
				return true
			}
			continue
		}
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (c *StaticHolidayCalendar) GetHolidays(subjectID SubjectID, year int) []Holiday {
	var result []Holiday
	for _, h := range c.Holidays {
		if h.SubjectID != "" && h.SubjectID != subjectID {
			continue
		}
		if h.Recurring {
			h.Date = NewTimePoint(year, h.Date.Month(), h.Date.Day())
		} else if h.Date.Year() != year {
			continue
		}
		result = append(result, h)
	}
	return result
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}
