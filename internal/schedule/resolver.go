package schedule

import (
	"sort"
	"time"

	"carebook/internal/models"
)

// FilterWeekExceptions narrows an exception set to the entries whose date
// falls in the Sunday-Saturday week containing referenceDate.
func FilterWeekExceptions(set models.ExceptionSet, referenceDate time.Time) models.ExceptionSet {
	return models.ExceptionSet{
		AddedDays:   filterSameWeek(set.AddedDays, referenceDate),
		RemovedDays: filterSameWeek(set.RemovedDays, referenceDate),
		ChangedDays: filterSameWeek(set.ChangedDays, referenceDate),
	}
}

func filterSameWeek(exceptions []models.Exception, referenceDate time.Time) []models.Exception {
	var out []models.Exception
	for _, exc := range exceptions {
		if SameWeek(exc.Date, referenceDate) {
			out = append(out, exc)
		}
	}
	return out
}

// ResolveEffectiveWeek computes the concrete occurrences for the calendar
// week containing referenceDate: regular rules clipped to the booking
// window, removed dates dropped, changed dates re-timed, and added dates
// appended as synthetic rules. The result is a fresh slice ordered by
// weekday (sun..sat).
//
// An empty regular schedule still admits addedDays entries; a changedDays
// entry whose date has no regular occurrence is ignored.
func ResolveEffectiveWeek(rules []models.WeekdayRule, window models.BookingWindow, exceptions models.ExceptionSet, referenceDate time.Time) []models.WeekdayRule {
	weekExceptions := FilterWeekExceptions(exceptions, referenceDate)

	effective := make([]models.WeekdayRule, 0, len(rules)+len(weekExceptions.AddedDays))
	for _, rule := range rules {
		concrete := DateForWeekday(referenceDate, rule.Day)
		if BeforeDay(concrete, window.StartDate) {
			continue
		}
		if window.EndDate != nil && AfterDay(concrete, *window.EndDate) {
			continue
		}
		if weekExceptions.RemovedOn(concrete) {
			continue
		}
		if changed, ok := weekExceptions.ChangedOn(concrete); ok {
			rule.StartTime = changed.StartTime
			rule.EndTime = changed.EndTime
		}
		effective = append(effective, rule)
	}

	for _, added := range weekExceptions.AddedDays {
		effective = append(effective, models.WeekdayRule{
			Day:       models.WeekdayOf(added.Date),
			StartTime: added.StartTime,
			EndTime:   added.EndTime,
		})
	}

	sort.SliceStable(effective, func(i, j int) bool {
		return effective[i].Day < effective[j].Day
	})
	return effective
}
