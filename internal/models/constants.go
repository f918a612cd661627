package models

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	BookingTypeOneTime   = "one-time"
	BookingTypeRecurring = "recurring"
)

const (
	ExceptionAddDate    = "addDate"
	ExceptionRemoveDate = "removeDate"
	ExceptionChangeDate = "changeDate"
)

const (
	PaymentMethodCard = "card"
	PaymentMethodBank = "bank"
)

// LineItemCodeBooking tags every per-occurrence line item.
const LineItemCodeBooking = "line-item/booking"

const (
	// DefaultBookingFeePercent is the platform commission applied to the payout.
	DefaultBookingFeePercent = 0.10

	// MaxRolloverLookaheadWeeks bounds the next-billing-period search.
	MaxRolloverLookaheadWeeks = 4

	// EndOfDayTime is the wall-clock string that denotes 24:00.
	EndOfDayTime = "12:00am"

	// TimeLayout parses wall-clock strings such as "9:00am".
	TimeLayout = "3:04pm"
)
