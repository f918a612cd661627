package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"carebook/internal/models"
	"carebook/internal/schedule"
)

// TimeEntry carries the session times for one dated occurrence.
type TimeEntry struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DateKey is the map key under which a date's TimeEntry is stored.
func DateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// BuildOneTimeLineItems expands a list of dated sessions into line items
// and aggregates the billing summary. Every date must have a TimeEntry
// under its DateKey; a count mismatch or a missing time is reported as
// ErrMalformedInput.
func BuildOneTimeLineItems(dates []time.Time, times map[string]TimeEntry, rate decimal.Decimal, paymentMethod string) (models.BillingSummary, error) {
	if len(dates) != len(times) {
		return models.BillingSummary{}, fmt.Errorf("%w: %d dates but %d time entries", ErrMalformedInput, len(dates), len(times))
	}

	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	items := make([]models.LineItem, 0, len(sorted))
	for _, date := range sorted {
		entry, ok := times[DateKey(date)]
		if !ok {
			return models.BillingSummary{}, fmt.Errorf("%w: no times for %s", ErrMalformedInput, DateKey(date))
		}
		if entry.StartTime == "" || entry.EndTime == "" {
			return models.BillingSummary{}, fmt.Errorf("%w: incomplete times for %s", ErrMalformedInput, DateKey(date))
		}

		item, err := buildLineItem(date, entry.StartTime, entry.EndTime, rate)
		if err != nil {
			return models.BillingSummary{}, err
		}
		items = append(items, item)
	}

	return summarize(items, paymentMethod), nil
}

// BuildRecurringLineItems resolves the first week of the booking window
// through the exception resolver and bills each effective occurrence. The
// summary echoes the raw schedule and window and is tagged as recurring.
func BuildRecurringLineItems(rules []models.WeekdayRule, window models.BookingWindow, rate decimal.Decimal, paymentMethod string, exceptions models.ExceptionSet) (models.BillingSummary, error) {
	effective := schedule.ResolveEffectiveWeek(rules, window, exceptions, window.StartDate)

	items := make([]models.LineItem, 0, len(effective))
	for _, rule := range effective {
		concrete := schedule.DateForWeekday(window.StartDate, rule.Day)
		item, err := buildLineItem(concrete, rule.StartTime, rule.EndTime, rate)
		if err != nil {
			return models.BillingSummary{}, err
		}
		items = append(items, item)
	}

	summary := summarize(items, paymentMethod)
	summary.BookingSchedule = rules
	summary.StartDate = schedule.FormatISO(window.StartDate)
	if window.EndDate != nil {
		summary.EndDate = schedule.FormatISO(*window.EndDate)
	}
	summary.CancelAtPeriodEnd = false
	summary.Type = models.BookingTypeRecurring
	return summary, nil
}

func buildLineItem(date time.Time, startTime, endTime string, rate decimal.Decimal) (models.LineItem, error) {
	hours, err := SessionHours(startTime, endTime)
	if err != nil {
		return models.LineItem{}, err
	}

	start, err := AtWallClock(date, startTime)
	if err != nil {
		return models.LineItem{}, err
	}

	// Rounded per item; the aggregate rounds again in summarize.
	amount := decimal.NewFromFloat(hours).Mul(rate).Round(2)
	fee := amount.Mul(BookingFeePercentage).Round(2)

	return models.LineItem{
		Code:       models.LineItemCodeBooking,
		Date:       schedule.FormatISO(start),
		ShortDate:  schedule.FormatShort(date),
		StartTime:  startTime,
		EndTime:    endTime,
		Hours:      hours,
		Amount:     amount.StringFixed(2),
		BookingFee: fee.StringFixed(2),
	}, nil
}

func summarize(items []models.LineItem, paymentMethod string) models.BillingSummary {
	payout := decimal.Zero
	for _, item := range items {
		payout = payout.Add(decimal.RequireFromString(item.Amount))
	}
	payout = payout.Round(2)

	bookingFee := payout.Mul(BookingFeePercentage).Round(2)
	processingFee := decimal.Zero
	if len(items) > 0 {
		processingFee = ProcessingFee(payout, bookingFee, paymentMethod)
	}
	total := bookingFee.Add(processingFee).Add(payout).Round(2)

	return models.BillingSummary{
		LineItems:     items,
		BookingFee:    bookingFee.StringFixed(2),
		ProcessingFee: processingFee.StringFixed(2),
		TotalPayment:  total.StringFixed(2),
		Payout:        payout.StringFixed(2),
	}
}
