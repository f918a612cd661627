package models

import "time"

// SessionTimes is the start/end pair of a single booked session.
type SessionTimes struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// OneTimeQuoteRequest asks for the billing summary of a set of discrete
// dates. Times is keyed by date in YYYY-MM-DD form.
type OneTimeQuoteRequest struct {
	Rate          string                  `json:"rate"`
	PaymentMethod string                  `json:"paymentMethod"`
	Dates         []time.Time             `json:"dates"`
	Times         map[string]SessionTimes `json:"times"`
}

// RecurringQuoteRequest asks for the billing summary of the effective
// week anchored at StartDate.
type RecurringQuoteRequest struct {
	Rate          string        `json:"rate"`
	PaymentMethod string        `json:"paymentMethod"`
	Schedule      []WeekdayRule `json:"schedule"`
	StartDate     time.Time     `json:"startDate"`
	EndDate       *time.Time    `json:"endDate,omitempty"`
	Exceptions    ExceptionSet  `json:"exceptions"`
}
