package models

import (
	"fmt"
	"time"
)

// Weekday is the single weekday representation used across the engine.
// Values match time.Weekday indices (Sunday = 0 .. Saturday = 6); the wire
// form is the three-letter lowercase tag ("sun".."sat").
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayTags = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayTags[w]
}

// Time converts to the standard library weekday (same indexing).
func (w Weekday) Time() time.Weekday {
	return time.Weekday(w)
}

// WeekdayOf returns the Weekday of a calendar date.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// ParseWeekday maps a three-letter tag back to a Weekday.
func ParseWeekday(tag string) (Weekday, error) {
	for i, t := range weekdayTags {
		if t == tag {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday tag %q", tag)
}

func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(weekdayTags[w]), nil
}

func (w *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
