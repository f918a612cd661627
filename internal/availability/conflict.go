// Package availability answers conflict queries: does a candidate date or
// recurring schedule collide with a counterparty's existing commitments?
// Like the schedule package it is pure; callers supply the booked-day and
// booked-date snapshot and filter out the booking's own transaction id
// before calling.
package availability

import (
	"time"

	"carebook/internal/models"
	"carebook/internal/schedule"
)

// farFutureYears normalizes open-ended ranges to a comparable end.
const farFutureYears = 1000

// RangesOverlap reports whether two closed date ranges intersect. Nil ends
// are treated as a far-future sentinel rather than a separate code path.
func RangesOverlap(start1 time.Time, end1 *time.Time, start2 time.Time, end2 *time.Time) bool {
	e1 := normalizeEnd(start1, end1)
	e2 := normalizeEnd(start2, end2)
	return !schedule.AfterDay(start1, e2) && !schedule.BeforeDay(e1, start2)
}

func normalizeEnd(start time.Time, end *time.Time) time.Time {
	if end != nil {
		return *end
	}
	return start.AddDate(farFutureYears, 0, 0)
}

// DateBlocked reports whether a single date collides with any existing
// commitment. A recurring record blocks the date when its regular schedule
// covers the weekday inside the record's window and the date has not been
// exception'd away; an added-day exception blocks regardless.
func DateBlocked(date time.Time, bookedDays []models.BookedDayRecord, bookedDates []models.BookedDate) bool {
	for _, rec := range bookedDays {
		if recordOccupies(rec, date) {
			return true
		}
	}
	for _, bd := range bookedDates {
		if schedule.SameDay(bd.Date, date) {
			return true
		}
	}
	return false
}

func recordOccupies(rec models.BookedDayRecord, date time.Time) bool {
	if _, added := rec.Exceptions.AddedOn(date); added {
		return true
	}
	if !rec.HasDay(models.WeekdayOf(date)) {
		return false
	}
	window := models.BookingWindow{StartDate: rec.StartDate, EndDate: rec.EndDate}
	if !schedule.WithinWindow(date, window) {
		return false
	}
	return !rec.Exceptions.RemovedOn(date)
}

// OneTimeBlocked reports whether any candidate date of a one-time booking
// is already taken.
func OneTimeBlocked(dates []time.Time, bookedDays []models.BookedDayRecord, bookedDates []models.BookedDate) bool {
	for _, date := range dates {
		if DateBlocked(date, bookedDays, bookedDates) {
			return true
		}
	}
	return false
}

// EffectiveOnDate reports whether a schedule, after exceptions, occupies a
// concrete date: added dates always do, removed dates never do, otherwise
// the regular weekday rule decides.
func EffectiveOnDate(date time.Time, rules []models.WeekdayRule, exceptions models.ExceptionSet) bool {
	if _, added := exceptions.AddedOn(date); added {
		return true
	}
	if exceptions.RemovedOn(date) {
		return false
	}
	day := models.WeekdayOf(date)
	for _, rule := range rules {
		if rule.Day == day {
			return true
		}
	}
	return false
}

// RecurringBlocked reports whether a candidate recurring schedule collides
// with existing commitments. Three tiers are checked, any of which blocks:
// a literal booked date the candidate schedule occupies, a booked-day
// record overlapping the window that shares a weekday (regular or added),
// and a candidate added day landing on a record's occupied date.
func RecurringBlocked(rules []models.WeekdayRule, window models.BookingWindow, exceptions models.ExceptionSet, bookedDays []models.BookedDayRecord, bookedDates []models.BookedDate) bool {
	for _, bd := range bookedDates {
		if !schedule.WithinWindow(bd.Date, window) {
			continue
		}
		if EffectiveOnDate(bd.Date, rules, exceptions) {
			return true
		}
	}

	for _, rec := range bookedDays {
		if !RangesOverlap(window.StartDate, window.EndDate, rec.StartDate, rec.EndDate) {
			continue
		}
		for _, rule := range rules {
			if rec.HasDay(rule.Day) {
				return true
			}
		}
		for _, candidate := range exceptions.AddedDays {
			for _, existing := range rec.Exceptions.AddedDays {
				if models.WeekdayOf(candidate.Date) == models.WeekdayOf(existing.Date) {
					return true
				}
			}
		}
	}

	for _, candidate := range exceptions.AddedDays {
		if DateBlocked(candidate.Date, bookedDays, nil) {
			return true
		}
	}

	return false
}
