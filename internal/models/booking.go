package models

import "time"

// Booking is the persisted booking aggregate. Schedule, window and
// exceptions are the inputs the engine computes from; LastLineItems holds
// the line items of the most recently charged period for rollover.
type Booking struct {
	ID            string        `json:"id"`
	ListingID     string        `json:"listing_id"`
	CustomerID    string        `json:"customer_id"`
	ProviderID    string        `json:"provider_id"`
	Type          string        `json:"type"` // one-time, recurring
	Rate          string        `json:"rate"`
	PaymentMethod string        `json:"payment_method"`
	Schedule      []WeekdayRule `json:"schedule,omitempty"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
	Dates         []time.Time   `json:"dates,omitempty"`
	Exceptions    ExceptionSet  `json:"exceptions"`
	LastLineItems []LineItem    `json:"last_line_items,omitempty"`
	Status        string        `json:"status"` // pending, accepted, declined, cancelled, completed
	LastChargedAt *time.Time    `json:"last_charged_at,omitempty"`
	NextChargeAt  *time.Time    `json:"next_charge_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Version       int64         `json:"version"`
}

// Window bundles the booking's date range in the shape the engine expects.
func (b *Booking) Window() BookingWindow {
	return BookingWindow{StartDate: b.StartDate, EndDate: b.EndDate}
}

// AsBookedDayRecord converts an accepted recurring booking into the
// conflict-check shape.
func (b *Booking) AsBookedDayRecord() BookedDayRecord {
	days := make([]Weekday, 0, len(b.Schedule))
	for _, rule := range b.Schedule {
		days = append(days, rule.Day)
	}
	return BookedDayRecord{
		TxID:       b.ID,
		Days:       days,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Exceptions: b.Exceptions,
	}
}
