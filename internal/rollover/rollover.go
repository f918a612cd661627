// Package rollover determines when the next billing period of a recurring
// booking starts. A schedule can be exception'd down to nothing for a
// while, so the search probes successive weeks with a hard bound instead
// of recursing.
package rollover

import (
	"errors"
	"fmt"
	"time"

	"carebook/internal/billing"
	"carebook/internal/models"
	"carebook/internal/schedule"
)

// ErrNoNextPeriod signals that no effective day exists within the
// lookahead bound. Callers escalate this to manual review rather than
// retrying.
var ErrNoNextPeriod = errors.New("no effective day within rollover lookahead")

// NextPeriodStart finds the start of the next billing week after the last
// charged period. Week attempt N is 7*N days after the first charged line
// item's date; the first week with at least one effective occurrence wins,
// and its first occurrence's date at that day's start time is returned.
func NextPeriodStart(lastLineItems []models.LineItem, rules []models.WeekdayRule, exceptions models.ExceptionSet) (time.Time, error) {
	if len(lastLineItems) == 0 {
		return time.Time{}, fmt.Errorf("%w: no charged line items", billing.ErrMalformedInput)
	}

	anchor, err := time.Parse(schedule.ISOOffsetLayout, lastLineItems[0].Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad line item date %q", billing.ErrMalformedInput, lastLineItems[0].Date)
	}

	for attempt := 1; attempt <= models.MaxRolloverLookaheadWeeks; attempt++ {
		reference := anchor.AddDate(0, 0, 7*attempt)
		window := models.BookingWindow{StartDate: schedule.WeekStart(reference)}

		effective := schedule.ResolveEffectiveWeek(rules, window, exceptions, reference)
		if len(effective) == 0 {
			continue
		}

		first := effective[0]
		day := schedule.DateForWeekday(reference, first.Day)
		return billing.AtWallClock(day, first.StartTime)
	}

	return time.Time{}, ErrNoNextPeriod
}
