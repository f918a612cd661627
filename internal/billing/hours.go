// Package billing expands schedules into dated line items and aggregates
// fees and payout for a billing period. All monetary math runs on
// shopspring decimals and is formatted to two places at both the line-item
// and the aggregate level; the double rounding is deliberate and matches
// the amounts existing bookings were charged with.
package billing

import (
	"errors"
	"fmt"
	"time"

	"carebook/internal/models"
)

// ErrMalformedInput marks validation failures callers can render as form
// errors: mismatched date/time collections or missing session times.
var ErrMalformedInput = errors.New("malformed billing input")

// minutesOfDay parses a wall-clock string ("9:00am") to minutes since
// midnight.
func minutesOfDay(wallClock string) (int, error) {
	t, err := time.Parse(models.TimeLayout, wallClock)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrMalformedInput, wallClock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SessionHours computes the length of a session in hours. An end time of
// "12:00am" means the session runs to end-of-day (24:00).
func SessionHours(startTime, endTime string) (float64, error) {
	start, err := minutesOfDay(startTime)
	if err != nil {
		return 0, err
	}

	endMinutes := 24 * 60
	if endTime != models.EndOfDayTime {
		endMinutes, err = minutesOfDay(endTime)
		if err != nil {
			return 0, err
		}
	}

	if endMinutes <= start {
		return 0, fmt.Errorf("%w: end time %q not after start time %q", ErrMalformedInput, endTime, startTime)
	}
	return float64(endMinutes-start) / 60, nil
}

// AtWallClock anchors a wall-clock string onto a calendar date.
func AtWallClock(date time.Time, wallClock string) (time.Time, error) {
	minutes, err := minutesOfDay(wallClock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location()), nil
}
