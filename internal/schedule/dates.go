// Package schedule holds the calendar arithmetic and the effective-week
// resolver the rest of the engine is built on. Everything here is a pure
// function: inputs are never mutated and no ambient clock is read.
package schedule

import (
	"time"

	"carebook/internal/models"
)

// ISOOffsetLayout formats date-times with a numeric zone offset.
const ISOOffsetLayout = "2006-01-02T15:04:05-07:00"

// ShortDateLayout is the compact form shown on line items.
const ShortDateLayout = "Jan 02"

// DayStart truncates a timestamp to midnight in its own location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BeforeDay reports whether a falls on an earlier calendar date than b.
func BeforeDay(a, b time.Time) bool {
	return DayStart(a).Before(DayStart(b))
}

// AfterDay reports whether a falls on a later calendar date than b.
func AfterDay(a, b time.Time) bool {
	return DayStart(a).After(DayStart(b))
}

// WeekStart returns midnight of the Sunday of the week containing t.
func WeekStart(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, -int(t.Weekday()))
}

// SameWeek reports whether two dates share a Sunday-anchored week.
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}

// DateForWeekday returns the concrete date of a weekday within the week
// containing referenceDate.
func DateForWeekday(referenceDate time.Time, day models.Weekday) time.Time {
	return WeekStart(referenceDate).AddDate(0, 0, int(day))
}

// WithinWindow reports whether date falls inside the booking window, both
// ends inclusive. A nil end leaves the window open.
func WithinWindow(date time.Time, window models.BookingWindow) bool {
	if BeforeDay(date, window.StartDate) {
		return false
	}
	if window.EndDate != nil && AfterDay(date, *window.EndDate) {
		return false
	}
	return true
}

// FormatISO renders a timestamp in ISO-offset form.
func FormatISO(t time.Time) string {
	return t.Format(ISOOffsetLayout)
}

// FormatShort renders the compact date shown on line items.
func FormatShort(t time.Time) string {
	return t.Format(ShortDateLayout)
}
