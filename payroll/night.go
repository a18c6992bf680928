package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// NIGHT WINDOW
// =============================================================================

// The night window is [22:00, 06:00) local wall-clock time on every calendar
// day, i.e. the union of [00:00, 06:00) and [22:00, 24:00).
const (
	NightStartHour = 22
	NightEndHour   = 6
)

// NormalizeInterval moves an end that precedes start forward by one
// calendar day, so a shift entered as 21:00 - 05:00 spans the night. An
// end equal to start is left alone and yields a zero-length interval.
func NormalizeInterval(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// NightDuration returns how much of [start, end) falls in the night window.
//
// The interval is intersected with the two window segments of every
// calendar day it touches. Day boundaries are built with time.Date in the
// start's location so DST transitions shift the wall clock, not the window.
// Days are counted from the start date rather than read back from the
// previous boundary: where local midnight does not exist, time.Date may
// resolve it into the preceding day.
func NightDuration(start, end time.Time) time.Duration {
	start, end = NormalizeInterval(start, end)
	if !end.After(start) {
		return 0
	}

	loc := start.Location()
	end = end.In(loc)

	var total time.Duration
	y, m, d := start.Date()
	for i := 0; ; i++ {
		dayStart := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		if !dayStart.Before(end) {
			break
		}
		dayEnd := time.Date(y, m, d+i+1, 0, 0, 0, 0, loc)

		total += overlap(start, end, dayStart, time.Date(y, m, d+i, NightEndHour, 0, 0, 0, loc))
		total += overlap(start, end, time.Date(y, m, d+i, NightStartHour, 0, 0, 0, loc), dayEnd)
	}
	return total
}

// NightHours is NightDuration in hours, rounded to two decimals.
func NightHours(start, end time.Time) decimal.Decimal {
	return generic.HoursOf(NightDuration(start, end)).Value.Round(2)
}

// overlap returns the length of [a0, a1) ∩ [b0, b1).
func overlap(a0, a1, b0, b1 time.Time) time.Duration {
	lo := a0
	if b0.After(lo) {
		lo = b0
	}
	hi := a1
	if b1.Before(hi) {
		hi = b1
	}
	if !hi.After(lo) {
		return 0
	}
	return hi.Sub(lo)
}
