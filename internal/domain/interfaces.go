package domain

import (
	"context"
	"time"

	"carebook/internal/models"
)

type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetListingBookedDays(ctx context.Context, listingID string) ([]models.BookedDayRecord, error)
	GetListingBookedDates(ctx context.Context, listingID string) ([]models.BookedDate, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error
	UpdateBookingExceptionsWithVersion(ctx context.Context, id string, fromVersion int64, exceptions models.ExceptionSet) error
	UpdateBookingCharge(ctx context.Context, id string, lineItems []models.LineItem, chargedAt time.Time, nextChargeAt *time.Time) error
	UpdateNextCharge(ctx context.Context, id string, nextChargeAt *time.Time) error
	ListActiveRecurring(ctx context.Context, dueBefore time.Time, limit int) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

type SummaryCache interface {
	Get(ctx context.Context, key string) (*models.BillingSummary, error)
	Set(ctx context.Context, key string, summary *models.BillingSummary) error
	Invalidate(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	QuoteOneTime(ctx context.Context, req models.OneTimeQuoteRequest) (*models.BillingSummary, error)
	QuoteRecurring(ctx context.Context, req models.RecurringQuoteRequest) (*models.BillingSummary, error)
	CheckDateAvailable(ctx context.Context, listingID string, date time.Time) (bool, error)
	CheckRecurringAvailable(ctx context.Context, listingID string, req models.RecurringQuoteRequest) (bool, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	AcceptBooking(ctx context.Context, id string, version int64) error
	DeclineBooking(ctx context.Context, id string, version int64) error
	CancelBooking(ctx context.Context, id string, version int64) error
	CompleteBooking(ctx context.Context, id string, version int64) error
	ModifyExceptions(ctx context.Context, id string, version int64, exceptions models.ExceptionSet) error
	NextChargeDate(ctx context.Context, id string) (time.Time, error)
}
