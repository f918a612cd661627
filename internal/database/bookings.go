package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"carebook/internal/models"
)

const bookingColumns = `id, listing_id, customer_id, provider_id, type, rate, payment_method,
        schedule, start_date, end_date, dates, exceptions, last_line_items,
        status, last_charged_at, next_charge_at, created_at, updated_at, version`

func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	schedule, err := json.Marshal(booking.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	dates, err := json.Marshal(booking.Dates)
	if err != nil {
		return fmt.Errorf("encode dates: %w", err)
	}
	exceptions, err := json.Marshal(booking.Exceptions)
	if err != nil {
		return fmt.Errorf("encode exceptions: %w", err)
	}
	lineItems, err := json.Marshal(booking.LastLineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO bookings (
            id, listing_id, customer_id, provider_id, type, rate, payment_method,
            schedule, start_date, end_date, dates, exceptions, last_line_items,
            status, last_charged_at, next_charge_at, created_at, updated_at, version
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = d.db.ExecContext(ctx, query,
		booking.ID,
		booking.ListingID,
		booking.CustomerID,
		booking.ProviderID,
		booking.Type,
		booking.Rate,
		booking.PaymentMethod,
		string(schedule),
		booking.StartDate,
		booking.EndDate,
		string(dates),
		string(exceptions),
		string(lineItems),
		booking.Status,
		booking.LastChargedAt,
		booking.NextChargeAt,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return booking, nil
}

// GetListingBookedDays returns the accepted recurring bookings of a
// listing in the conflict-check shape.
func (d *DB) GetListingBookedDays(ctx context.Context, listingID string) ([]models.BookedDayRecord, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE listing_id = ? AND type = ? AND status = ?`
	rows, err := d.db.QueryContext(ctx, query, listingID, models.BookingTypeRecurring, models.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list booked days for %s: %w", listingID, err)
	}
	defer rows.Close()

	var records []models.BookedDayRecord
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booked day record: %w", err)
		}
		records = append(records, booking.AsBookedDayRecord())
	}
	return records, rows.Err()
}

// GetListingBookedDates expands the accepted one-time bookings of a
// listing into individual occupied dates.
func (d *DB) GetListingBookedDates(ctx context.Context, listingID string) ([]models.BookedDate, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE listing_id = ? AND type = ? AND status = ?`
	rows, err := d.db.QueryContext(ctx, query, listingID, models.BookingTypeOneTime, models.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list booked dates for %s: %w", listingID, err)
	}
	defer rows.Close()

	var booked []models.BookedDate
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booked date record: %w", err)
		}
		for _, date := range booking.Dates {
			booked = append(booked, models.BookedDate{TxID: booking.ID, Date: date})
		}
	}
	return booked, rows.Err()
}

func (d *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := d.db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return requireRow(ctx, d, result, id)
}

func (d *DB) UpdateBookingExceptionsWithVersion(ctx context.Context, id string, fromVersion int64, exceptions models.ExceptionSet) error {
	encoded, err := json.Marshal(exceptions)
	if err != nil {
		return fmt.Errorf("encode exceptions: %w", err)
	}

	query := `UPDATE bookings SET exceptions = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := d.db.ExecContext(ctx, query, string(encoded), time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking exceptions: %w", err)
	}
	return requireRow(ctx, d, result, id)
}

// UpdateBookingCharge records the line items of a charged period together
// with the charge bookkeeping timestamps.
func (d *DB) UpdateBookingCharge(ctx context.Context, id string, lineItems []models.LineItem, chargedAt time.Time, nextChargeAt *time.Time) error {
	encoded, err := json.Marshal(lineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	query := `UPDATE bookings SET last_line_items = ?, last_charged_at = ?, next_charge_at = ?, updated_at = ?
              WHERE id = ?`
	result, err := d.db.ExecContext(ctx, query, string(encoded), chargedAt, nextChargeAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update booking charge: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNextCharge stores the computed start of the next billing period.
// A nil value marks the booking as needing manual review.
func (d *DB) UpdateNextCharge(ctx context.Context, id string, nextChargeAt *time.Time) error {
	query := `UPDATE bookings SET next_charge_at = ?, updated_at = ? WHERE id = ?`
	result, err := d.db.ExecContext(ctx, query, nextChargeAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update next charge: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveRecurring returns accepted recurring bookings whose next
// charge is unset or due before the given time, oldest first.
func (d *DB) ListActiveRecurring(ctx context.Context, dueBefore time.Time, limit int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE type = ? AND status = ?
                AND (next_charge_at IS NULL OR next_charge_at <= ?)
              ORDER BY next_charge_at ASC
              LIMIT ?`
	rows, err := d.db.QueryContext(ctx, query, models.BookingTypeRecurring, models.StatusAccepted, dueBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list active recurring bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// GetBookingsByDateRange returns accepted bookings whose windows touch
// the given range, ordered by start date. Used by the exporter.
func (d *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
              ORDER BY start_date ASC`
	rows, err := d.db.QueryContext(ctx, query, models.StatusAccepted, end, start)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func requireRow(ctx context.Context, d *DB, result sql.Result, id string) error {
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}
	// Distinguish a stale version from a missing booking.
	var exists int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists)
	if err == nil && exists == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		schedule   string
		dates      string
		exceptions string
		lineItems  string
	)
	err := row.Scan(
		&b.ID, &b.ListingID, &b.CustomerID, &b.ProviderID, &b.Type, &b.Rate, &b.PaymentMethod,
		&schedule, &b.StartDate, &b.EndDate, &dates, &exceptions, &lineItems,
		&b.Status, &b.LastChargedAt, &b.NextChargeAt, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(schedule), &b.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(dates), &b.Dates); err != nil {
		return nil, fmt.Errorf("decode dates: %w", err)
	}
	if err := json.Unmarshal([]byte(exceptions), &b.Exceptions); err != nil {
		return nil, fmt.Errorf("decode exceptions: %w", err)
	}
	if err := json.Unmarshal([]byte(lineItems), &b.LastLineItems); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	return &b, nil
}
