// Package worker advances recurring bookings from one billing period to
// the next. A ticker loop lists accepted recurring bookings that are due
// (or never seeded), rebuilds their line items for the new period and
// computes the following charge date.
package worker

import (
	"context"
	"errors"
	"time"

	"carebook/internal/billing"
	"carebook/internal/domain"
	"carebook/internal/events"
	"carebook/internal/metrics"
	"carebook/internal/models"
	"carebook/internal/rollover"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type RolloverWorker struct {
	repo        domain.Repository
	eventBus    domain.EventPublisher
	retryPolicy RetryPolicy
	interval    time.Duration
	batchSize   int
	logger      *zerolog.Logger

	now func() time.Time
}

func NewRolloverWorker(repo domain.Repository, eventBus domain.EventPublisher, retry RetryPolicy, interval time.Duration, batchSize int, logger *zerolog.Logger) *RolloverWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	return &RolloverWorker{
		repo:        repo,
		eventBus:    eventBus,
		retryPolicy: retry,
		interval:    interval,
		batchSize:   batchSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Start runs the loop until ctx is done. One pass runs immediately.
func (w *RolloverWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("rollover worker started")
	defer w.logger.Info().Msg("rollover worker stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RolloverWorker) runOnce(ctx context.Context) {
	bookings, err := w.listDueWithRetry(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("list due recurring bookings")
		return
	}

	for _, booking := range bookings {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, booking)
	}
}

func (w *RolloverWorker) listDueWithRetry(ctx context.Context) ([]*models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		bookings, err := w.repo.ListActiveRecurring(ctx, w.now(), w.batchSize)
		if err == nil {
			return bookings, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}
	return nil, lastErr
}

// process rolls one booking into its next billing period. A booking that
// was never seeded gets its first period from the booking window; an
// exhausted lookahead completes the booking.
func (w *RolloverWorker) process(ctx context.Context, booking *models.Booking) {
	periodStart := booking.StartDate
	if len(booking.LastLineItems) > 0 {
		next, err := rollover.NextPeriodStart(booking.LastLineItems, booking.Schedule, booking.Exceptions)
		if errors.Is(err, rollover.ErrNoNextPeriod) {
			w.exhaust(ctx, booking)
			return
		}
		if err != nil {
			metrics.IncRollover("error")
			w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("next period computation failed")
			return
		}
		periodStart = next
	}

	rate, err := decimal.NewFromString(booking.Rate)
	if err != nil {
		metrics.IncRollover("error")
		w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("unparseable booking rate")
		return
	}

	window := models.BookingWindow{StartDate: periodStart, EndDate: booking.EndDate}
	summary, err := billing.BuildRecurringLineItems(booking.Schedule, window, rate, booking.PaymentMethod, booking.Exceptions)
	if err != nil {
		metrics.IncRollover("error")
		w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("build period line items")
		return
	}

	var nextCharge *time.Time
	if next, err := rollover.NextPeriodStart(summary.LineItems, booking.Schedule, booking.Exceptions); err == nil {
		nextCharge = &next
	}

	if err := w.repo.UpdateBookingCharge(ctx, booking.ID, summary.LineItems, w.now(), nextCharge); err != nil {
		metrics.IncRollover("error")
		w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("persist period charge")
		return
	}

	metrics.IncRollover("found")
	w.publish(events.EventRolloverComputed, booking, nextCharge, "")
	w.logger.Info().
		Str("booking_id", booking.ID).
		Time("period_start", periodStart).
		Int("line_items", len(summary.LineItems)).
		Msg("billing period rolled over")
}

// exhaust handles a booking with no effective day inside the lookahead:
// it is completed so the loop stops picking it up.
func (w *RolloverWorker) exhaust(ctx context.Context, booking *models.Booking) {
	metrics.IncRollover("exhausted")

	if err := w.repo.UpdateNextCharge(ctx, booking.ID, nil); err != nil {
		w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("clear next charge")
	}
	if err := w.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCompleted); err != nil {
		w.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("complete exhausted booking")
		return
	}

	booking.Status = models.StatusCompleted
	w.publish(events.EventRolloverUnresolved, booking, nil, "no effective day within lookahead")
	w.logger.Info().Str("booking_id", booking.ID).Msg("booking completed, no next billing period")
}

func (w *RolloverWorker) publish(eventType string, booking *models.Booking, nextCharge *time.Time, reason string) {
	if w.eventBus == nil {
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
		NextChargeAt: nextCharge,
		Reason:       reason,
	}
	if err := w.eventBus.PublishJSON(eventType, payload); err != nil {
		w.logger.Error().Err(err).Str("event_type", eventType).Msg("publish rollover event")
	}
}
