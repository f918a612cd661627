package models

import "time"

// WeekdayRule is one recurring weekly occurrence. Times are wall-clock
// strings in "h:mma" form ("9:00am"). An EndTime of "12:00am" denotes
// end-of-day (24:00), not a zero-length session.
type WeekdayRule struct {
	Day       Weekday `json:"dayOfWeek"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
}

// Exception is a date-level override of the regular weekly schedule.
type Exception struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"startTime,omitempty"`
	EndTime   string    `json:"endTime,omitempty"`
	Type      string    `json:"type"`
}

// ExceptionSet groups the three exception kinds. A given calendar date may
// appear in at most one of the collections.
type ExceptionSet struct {
	AddedDays   []Exception `json:"addedDays"`
	RemovedDays []Exception `json:"removedDays"`
	ChangedDays []Exception `json:"changedDays"`
}

// IsEmpty reports whether the set carries no overrides at all.
func (s ExceptionSet) IsEmpty() bool {
	return len(s.AddedDays) == 0 && len(s.RemovedDays) == 0 && len(s.ChangedDays) == 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddedOn returns the add-date exception covering a calendar date, if any.
func (s ExceptionSet) AddedOn(date time.Time) (Exception, bool) {
	for _, exc := range s.AddedDays {
		if sameDay(exc.Date, date) {
			return exc, true
		}
	}
	return Exception{}, false
}

// RemovedOn reports whether a calendar date is cancelled by the set.
func (s ExceptionSet) RemovedOn(date time.Time) bool {
	for _, exc := range s.RemovedDays {
		if sameDay(exc.Date, date) {
			return true
		}
	}
	return false
}

// ChangedOn returns the change-date exception covering a calendar date, if any.
func (s ExceptionSet) ChangedOn(date time.Time) (Exception, bool) {
	for _, exc := range s.ChangedDays {
		if sameDay(exc.Date, date) {
			return exc, true
		}
	}
	return Exception{}, false
}

// BookingWindow is the date range a recurring schedule is active over.
// A nil EndDate means the recurrence is open-ended.
type BookingWindow struct {
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// BookedDayRecord is another booking's regular schedule, used for conflict
// checks. TxID identifies the owning transaction so a booking can be
// excluded when checked against itself.
type BookedDayRecord struct {
	TxID       string       `json:"txId"`
	Days       []Weekday    `json:"days"`
	StartDate  time.Time    `json:"startDate"`
	EndDate    *time.Time   `json:"endDate"`
	Exceptions ExceptionSet `json:"exceptions"`
}

// HasDay reports whether the record's regular schedule covers a weekday.
func (r BookedDayRecord) HasDay(day Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// BookedDate is a one-time commitment occupying a single calendar date.
type BookedDate struct {
	TxID string    `json:"txId"`
	Date time.Time `json:"date"`
}
