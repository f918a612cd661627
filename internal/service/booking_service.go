// Package service orchestrates the pure scheduling and billing core
// around persisted bookings: quoting, conflict-checked creation, status
// transitions and exception edits.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"carebook/internal/availability"
	"carebook/internal/billing"
	"carebook/internal/domain"
	"carebook/internal/events"
	"carebook/internal/metrics"
	"carebook/internal/models"
	"carebook/internal/rollover"
	"carebook/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type BookingService struct {
	repo           domain.Repository
	cache          domain.SummaryCache
	eventBus       domain.EventPublisher
	maxBookingDays int
	logger         *zerolog.Logger

	// now is injectable so past-date guards are testable. The core
	// packages never read the clock.
	now func() time.Time
}

func NewBookingService(repo domain.Repository, cache domain.SummaryCache, eventBus domain.EventPublisher, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	return &BookingService{
		repo:           repo,
		cache:          cache,
		eventBus:       eventBus,
		maxBookingDays: maxBookingDays,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *BookingService) ValidateBookingDate(date time.Time) error {
	if date.Before(s.now().AddDate(0, 0, -1)) {
		return ErrPastDate
	}
	if date.After(s.now().AddDate(0, 0, s.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

// quoteKey derives the cache key from the full quote input. Two
// identical requests always hash alike, so a cached summary can be
// reused for as long as it lives.
func quoteKey(kind string, req interface{}) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return kind + ":" + hex.EncodeToString(sum[:])
}

func (s *BookingService) QuoteOneTime(ctx context.Context, req models.OneTimeQuoteRequest) (*models.BillingSummary, error) {
	key := quoteKey("one-time", req)
	if cached := s.cachedSummary(ctx, key); cached != nil {
		metrics.IncQuote(models.BookingTypeOneTime, "hit")
		return cached, nil
	}

	rate, err := parseRate(req.Rate)
	if err != nil {
		return nil, err
	}

	times := make(map[string]billing.TimeEntry, len(req.Times))
	for k, v := range req.Times {
		times[k] = billing.TimeEntry{StartTime: v.StartTime, EndTime: v.EndTime}
	}

	summary, err := billing.BuildOneTimeLineItems(req.Dates, times, rate, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	metrics.IncQuote(models.BookingTypeOneTime, "miss")
	s.storeSummary(ctx, key, &summary)
	return &summary, nil
}

func (s *BookingService) QuoteRecurring(ctx context.Context, req models.RecurringQuoteRequest) (*models.BillingSummary, error) {
	key := quoteKey("recurring", req)
	if cached := s.cachedSummary(ctx, key); cached != nil {
		metrics.IncQuote(models.BookingTypeRecurring, "hit")
		return cached, nil
	}

	rate, err := parseRate(req.Rate)
	if err != nil {
		return nil, err
	}

	window := models.BookingWindow{StartDate: req.StartDate, EndDate: req.EndDate}
	summary, err := billing.BuildRecurringLineItems(req.Schedule, window, rate, req.PaymentMethod, req.Exceptions)
	if err != nil {
		return nil, err
	}

	metrics.IncQuote(models.BookingTypeRecurring, "miss")
	s.storeSummary(ctx, key, &summary)
	return &summary, nil
}

// CheckDateAvailable reports whether a single calendar date of a listing
// is free of accepted bookings.
func (s *BookingService) CheckDateAvailable(ctx context.Context, listingID string, date time.Time) (bool, error) {
	bookedDays, bookedDates, err := s.listingSnapshot(ctx, listingID, "")
	if err != nil {
		return false, err
	}
	blocked := availability.DateBlocked(date, bookedDays, bookedDates)
	if blocked {
		metrics.IncConflict()
	}
	return !blocked, nil
}

// CheckRecurringAvailable reports whether a candidate recurring schedule
// fits the listing without colliding with accepted bookings.
func (s *BookingService) CheckRecurringAvailable(ctx context.Context, listingID string, req models.RecurringQuoteRequest) (bool, error) {
	bookedDays, bookedDates, err := s.listingSnapshot(ctx, listingID, "")
	if err != nil {
		return false, err
	}
	window := models.BookingWindow{StartDate: req.StartDate, EndDate: req.EndDate}
	blocked := availability.RecurringBlocked(req.Schedule, window, req.Exceptions, bookedDays, bookedDates)
	if blocked {
		metrics.IncConflict()
	}
	return !blocked, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	if _, err := parseRate(booking.Rate); err != nil {
		return err
	}
	if err := s.ValidateBookingDate(booking.StartDate); err != nil {
		return err
	}

	bookedDays, bookedDates, err := s.listingSnapshot(ctx, booking.ListingID, booking.ID)
	if err != nil {
		return err
	}

	switch booking.Type {
	case models.BookingTypeOneTime:
		if len(booking.Dates) == 0 {
			return ErrEmptySchedule
		}
		for _, date := range booking.Dates {
			if err := s.ValidateBookingDate(date); err != nil {
				return err
			}
		}
		if availability.OneTimeBlocked(booking.Dates, bookedDays, bookedDates) {
			metrics.IncConflict()
			return ErrScheduleConflict
		}
	case models.BookingTypeRecurring:
		if len(booking.Schedule) == 0 && len(booking.Exceptions.AddedDays) == 0 {
			return ErrEmptySchedule
		}
		if availability.RecurringBlocked(booking.Schedule, booking.Window(), booking.Exceptions, bookedDays, bookedDates) {
			metrics.IncConflict()
			return ErrScheduleConflict
		}
	default:
		return fmt.Errorf("%w: unknown booking type %q", billing.ErrMalformedInput, booking.Type)
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return err
	}

	s.publishEvent(events.EventBookingCreated, booking, "")
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) AcceptBooking(ctx context.Context, id string, version int64) error {
	booking, err := s.transition(ctx, id, version, models.StatusAccepted, models.StatusPending)
	if err != nil {
		return err
	}

	if booking.Type == models.BookingTypeRecurring {
		s.seedBillingPeriod(ctx, booking)
	}

	s.publishEvent(events.EventBookingAccepted, booking, "")
	return nil
}

func (s *BookingService) DeclineBooking(ctx context.Context, id string, version int64) error {
	booking, err := s.transition(ctx, id, version, models.StatusDeclined, models.StatusPending)
	if err != nil {
		return err
	}
	s.publishEvent(events.EventBookingDeclined, booking, "")
	return nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id string, version int64) error {
	booking, err := s.transition(ctx, id, version, models.StatusCancelled, models.StatusPending, models.StatusAccepted)
	if err != nil {
		return err
	}
	s.publishEvent(events.EventBookingCancelled, booking, "")
	return nil
}

func (s *BookingService) CompleteBooking(ctx context.Context, id string, version int64) error {
	booking, err := s.transition(ctx, id, version, models.StatusCompleted, models.StatusAccepted)
	if err != nil {
		return err
	}
	s.publishEvent(events.EventBookingCompleted, booking, "")
	return nil
}

// ModifyExceptions replaces a booking's exception set after validating it
// and re-running the conflict check against the listing snapshot.
func (s *BookingService) ModifyExceptions(ctx context.Context, id string, version int64, exceptions models.ExceptionSet) error {
	if err := validateExceptions(exceptions); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if booking.Type == models.BookingTypeRecurring {
		bookedDays, bookedDates, err := s.listingSnapshot(ctx, booking.ListingID, booking.ID)
		if err != nil {
			return err
		}
		if availability.RecurringBlocked(booking.Schedule, booking.Window(), exceptions, bookedDays, bookedDates) {
			metrics.IncConflict()
			return ErrScheduleConflict
		}
	}

	if err := s.repo.UpdateBookingExceptionsWithVersion(ctx, id, version, exceptions); err != nil {
		return err
	}

	s.invalidateQuote(ctx, booking)

	booking.Exceptions = exceptions
	s.publishEvent(events.EventBookingExceptionsChanged, booking, "")
	return nil
}

// NextChargeDate computes the start of the booking's next billing period
// from its last charged line items.
func (s *BookingService) NextChargeDate(ctx context.Context, id string) (time.Time, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return rollover.NextPeriodStart(booking.LastLineItems, booking.Schedule, booking.Exceptions)
}

func (s *BookingService) transition(ctx context.Context, id string, version int64, to string, from ...string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, status := range from {
		if booking.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, to)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, id, version, to); err != nil {
		return nil, err
	}
	booking.Status = to
	booking.Version = version + 1
	return booking, nil
}

// seedBillingPeriod computes the first period's line items for a freshly
// accepted recurring booking and schedules the next charge. Failures are
// logged, not returned: acceptance already happened.
func (s *BookingService) seedBillingPeriod(ctx context.Context, booking *models.Booking) {
	rate, err := parseRate(booking.Rate)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("seed billing period: bad rate")
		return
	}

	summary, err := billing.BuildRecurringLineItems(booking.Schedule, booking.Window(), rate, booking.PaymentMethod, booking.Exceptions)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("seed billing period: line items")
		return
	}

	var nextCharge *time.Time
	next, err := rollover.NextPeriodStart(summary.LineItems, booking.Schedule, booking.Exceptions)
	if err == nil {
		nextCharge = &next
	}

	if err := s.repo.UpdateBookingCharge(ctx, booking.ID, summary.LineItems, s.now(), nextCharge); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("seed billing period: persist")
	}
}

// listingSnapshot loads the occupied days/dates of a listing, excluding
// the given booking so a record never conflicts with itself.
func (s *BookingService) listingSnapshot(ctx context.Context, listingID, excludeTxID string) ([]models.BookedDayRecord, []models.BookedDate, error) {
	bookedDays, err := s.repo.GetListingBookedDays(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	bookedDates, err := s.repo.GetListingBookedDates(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}

	if excludeTxID != "" {
		days := bookedDays[:0]
		for _, record := range bookedDays {
			if record.TxID != excludeTxID {
				days = append(days, record)
			}
		}
		bookedDays = days

		dates := bookedDates[:0]
		for _, date := range bookedDates {
			if date.TxID != excludeTxID {
				dates = append(dates, date)
			}
		}
		bookedDates = dates
	}
	return bookedDays, bookedDates, nil
}

func (s *BookingService) cachedSummary(ctx context.Context, key string) *models.BillingSummary {
	if s.cache == nil {
		return nil
	}
	summary, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("summary cache get error")
		return nil
	}
	return summary
}

func (s *BookingService) storeSummary(ctx context.Context, key string, summary *models.BillingSummary) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, summary); err != nil {
		s.logger.Warn().Err(err).Msg("summary cache set error")
	}
}

// invalidateQuote drops the cached recurring quote matching the
// booking's pre-change inputs.
func (s *BookingService) invalidateQuote(ctx context.Context, booking *models.Booking) {
	if s.cache == nil || booking.Type != models.BookingTypeRecurring {
		return
	}
	key := quoteKey("recurring", models.RecurringQuoteRequest{
		Rate:          booking.Rate,
		PaymentMethod: booking.PaymentMethod,
		Schedule:      booking.Schedule,
		StartDate:     booking.StartDate,
		EndDate:       booking.EndDate,
		Exceptions:    booking.Exceptions,
	})
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("summary cache invalidate error")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		ListingID:    booking.ListingID,
		CustomerID:   booking.CustomerID,
		ProviderID:   booking.ProviderID,
		Type:         booking.Type,
		Status:       booking.Status,
		StartDate:    booking.StartDate,
		NextChargeAt: booking.NextChargeAt,
		Reason:       reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

// validateExceptions checks per-date mutual exclusivity and that each
// entry's type matches the list carrying it.
func validateExceptions(set models.ExceptionSet) error {
	seen := make(map[string]string)
	check := func(entries []models.Exception, wantType string, needTimes bool) error {
		for _, e := range entries {
			if e.Type != wantType {
				return fmt.Errorf("%w: exception type %q in %s list", billing.ErrMalformedInput, e.Type, wantType)
			}
			if needTimes {
				if _, err := billing.SessionHours(e.StartTime, e.EndTime); err != nil {
					return err
				}
			}
			key := schedule.FormatISO(schedule.DayStart(e.Date))
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("%w: date %s appears in both %s and %s", billing.ErrMalformedInput, key, prev, wantType)
			}
			seen[key] = wantType
		}
		return nil
	}

	if err := check(set.AddedDays, models.ExceptionAddDate, true); err != nil {
		return err
	}
	if err := check(set.RemovedDays, models.ExceptionRemoveDate, false); err != nil {
		return err
	}
	return check(set.ChangedDays, models.ExceptionChangeDate, true)
}

func parseRate(rate string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: rate %q", billing.ErrMalformedInput, rate)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative rate %q", billing.ErrMalformedInput, rate)
	}
	return d, nil
}
