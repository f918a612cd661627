package models

// LineItem is one billable occurrence. Monetary fields are decimal strings
// fixed to two places; Date is an ISO-offset date-time string.
type LineItem struct {
	Code       string  `json:"code"`
	Date       string  `json:"date"`
	ShortDate  string  `json:"shortDate"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Hours      float64 `json:"hours"`
	Amount     string  `json:"amount"`
	BookingFee string  `json:"bookingFee"`
}

// BillingSummary aggregates line items for one billing period. The
// recurring path additionally echoes the schedule and window and tags the
// summary with Type "recurring".
type BillingSummary struct {
	LineItems     []LineItem `json:"lineItems"`
	BookingFee    string     `json:"bookingFee"`
	ProcessingFee string     `json:"processingFee"`
	TotalPayment  string     `json:"totalPayment"`
	Payout        string     `json:"payout"`

	BookingSchedule   []WeekdayRule `json:"bookingSchedule,omitempty"`
	StartDate         string        `json:"startDate,omitempty"`
	EndDate           string        `json:"endDate,omitempty"`
	CancelAtPeriodEnd bool          `json:"cancelAtPeriodEnd,omitempty"`
	Type              string        `json:"type,omitempty"`
}
