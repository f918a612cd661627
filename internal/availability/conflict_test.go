package availability

import (
	"testing"
	"time"

	"carebook/internal/models"

	"github.com/stretchr/testify/assert"
)

// Week under test: Sunday 2026-08-02 .. Saturday 2026-08-08.
var (
	monday    = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	tuesday   = time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	wednesday = time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	friday    = time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)
)

func TestRangesOverlap(t *testing.T) {
	end1 := wednesday
	end2 := friday

	assert.True(t, RangesOverlap(monday, &end1, tuesday, &end2))
	assert.True(t, RangesOverlap(monday, &end1, wednesday, &end2), "shared boundary day overlaps")
	assert.False(t, RangesOverlap(monday, &end1, friday, nil))
	assert.True(t, RangesOverlap(monday, nil, friday, nil), "two open ranges always meet")
	assert.True(t, RangesOverlap(friday, nil, monday, &end2))
	assert.False(t, RangesOverlap(friday, nil, monday, &end1), "closed range ends before open one starts")
}

func TestDateBlocked(t *testing.T) {
	rec := models.BookedDayRecord{
		TxID:      "tx-existing",
		Days:      []models.Weekday{models.Monday},
		StartDate: monday,
	}

	t.Run("regular weekday blocks", func(t *testing.T) {
		assert.True(t, DateBlocked(monday, []models.BookedDayRecord{rec}, nil))
		assert.False(t, DateBlocked(tuesday, []models.BookedDayRecord{rec}, nil))
	})

	t.Run("outside record window does not block", func(t *testing.T) {
		previousMonday := monday.AddDate(0, 0, -7)
		assert.False(t, DateBlocked(previousMonday, []models.BookedDayRecord{rec}, nil))
	})

	t.Run("removed exception unblocks", func(t *testing.T) {
		removed := rec
		removed.Exceptions = models.ExceptionSet{
			RemovedDays: []models.Exception{{Date: monday, Type: models.ExceptionRemoveDate}},
		}
		assert.False(t, DateBlocked(monday, []models.BookedDayRecord{removed}, nil))
	})

	t.Run("added exception blocks off-schedule date", func(t *testing.T) {
		added := rec
		added.Exceptions = models.ExceptionSet{
			AddedDays: []models.Exception{{Date: friday, StartTime: "9:00am", EndTime: "1:00pm", Type: models.ExceptionAddDate}},
		}
		assert.True(t, DateBlocked(friday, []models.BookedDayRecord{added}, nil))
	})

	t.Run("literal booked date blocks", func(t *testing.T) {
		dates := []models.BookedDate{{TxID: "tx-2", Date: wednesday}}
		assert.True(t, DateBlocked(wednesday, nil, dates))
		assert.False(t, DateBlocked(tuesday, nil, dates))
	})
}

func TestOneTimeBlocked(t *testing.T) {
	booked := []models.BookedDate{{Date: wednesday}}

	assert.True(t, OneTimeBlocked([]time.Time{monday, wednesday}, nil, booked))
	assert.False(t, OneTimeBlocked([]time.Time{monday, tuesday}, nil, booked))
	assert.False(t, OneTimeBlocked(nil, nil, booked))
}

func TestRecurringBlocked_WeekdayCollision(t *testing.T) {
	rules := []models.WeekdayRule{{Day: models.Monday, StartTime: "9:00am", EndTime: "5:00pm"}}
	window := models.BookingWindow{StartDate: monday}
	existing := []models.BookedDayRecord{{
		TxID:      "tx-existing",
		Days:      []models.Weekday{models.Monday},
		StartDate: monday,
	}}

	assert.True(t, RecurringBlocked(rules, window, models.ExceptionSet{}, existing, nil))

	disjoint := []models.BookedDayRecord{{
		TxID:      "tx-existing",
		Days:      []models.Weekday{models.Thursday},
		StartDate: monday,
	}}
	assert.False(t, RecurringBlocked(rules, window, models.ExceptionSet{}, disjoint, nil))
}

func TestRecurringBlocked_NonOverlappingWindows(t *testing.T) {
	rules := []models.WeekdayRule{{Day: models.Monday, StartTime: "9:00am", EndTime: "5:00pm"}}
	windowEnd := wednesday
	window := models.BookingWindow{StartDate: monday, EndDate: &windowEnd}

	laterStart := monday.AddDate(0, 1, 0)
	existing := []models.BookedDayRecord{{
		TxID:      "tx-existing",
		Days:      []models.Weekday{models.Monday},
		StartDate: laterStart,
	}}

	assert.False(t, RecurringBlocked(rules, window, models.ExceptionSet{}, existing, nil))
}

func TestRecurringBlocked_BookedDateCollision(t *testing.T) {
	rules := []models.WeekdayRule{{Day: models.Wednesday, StartTime: "9:00am", EndTime: "5:00pm"}}
	window := models.BookingWindow{StartDate: monday}
	booked := []models.BookedDate{{Date: wednesday}}

	assert.True(t, RecurringBlocked(rules, window, models.ExceptionSet{}, nil, booked))

	// Removing that date from the candidate schedule clears the collision.
	exceptions := models.ExceptionSet{
		RemovedDays: []models.Exception{{Date: wednesday, Type: models.ExceptionRemoveDate}},
	}
	assert.False(t, RecurringBlocked(rules, window, exceptions, nil, booked))
}

func TestRecurringBlocked_AddedDayCollisions(t *testing.T) {
	window := models.BookingWindow{StartDate: monday}
	candidate := models.ExceptionSet{
		AddedDays: []models.Exception{{Date: friday, StartTime: "9:00am", EndTime: "1:00pm", Type: models.ExceptionAddDate}},
	}

	t.Run("against record regular day", func(t *testing.T) {
		existing := []models.BookedDayRecord{{
			TxID:      "tx-existing",
			Days:      []models.Weekday{models.Friday},
			StartDate: monday,
		}}
		assert.True(t, RecurringBlocked(nil, window, candidate, existing, nil))
	})

	t.Run("against record added day", func(t *testing.T) {
		existing := []models.BookedDayRecord{{
			TxID:      "tx-existing",
			Days:      []models.Weekday{models.Tuesday},
			StartDate: monday,
			Exceptions: models.ExceptionSet{
				AddedDays: []models.Exception{{Date: friday, StartTime: "2:00pm", EndTime: "6:00pm", Type: models.ExceptionAddDate}},
			},
		}}
		assert.True(t, RecurringBlocked(nil, window, candidate, existing, nil))
	})

	t.Run("no collision", func(t *testing.T) {
		existing := []models.BookedDayRecord{{
			TxID:      "tx-existing",
			Days:      []models.Weekday{models.Tuesday},
			StartDate: monday,
		}}
		assert.False(t, RecurringBlocked(nil, window, candidate, existing, nil))
	})
}

func TestRecurringBlocked_Symmetry(t *testing.T) {
	rulesA := []models.WeekdayRule{
		{Day: models.Monday, StartTime: "9:00am", EndTime: "5:00pm"},
		{Day: models.Friday, StartTime: "9:00am", EndTime: "5:00pm"},
	}
	rulesB := []models.WeekdayRule{
		{Day: models.Friday, StartTime: "10:00am", EndTime: "2:00pm"},
	}
	windowA := models.BookingWindow{StartDate: monday}
	windowB := models.BookingWindow{StartDate: wednesday}

	recordB := models.BookedDayRecord{TxID: "b", Days: []models.Weekday{models.Friday}, StartDate: wednesday}
	recordA := models.BookedDayRecord{TxID: "a", Days: []models.Weekday{models.Monday, models.Friday}, StartDate: monday}

	aVsB := RecurringBlocked(rulesA, windowA, models.ExceptionSet{}, []models.BookedDayRecord{recordB}, nil)
	bVsA := RecurringBlocked(rulesB, windowB, models.ExceptionSet{}, []models.BookedDayRecord{recordA}, nil)

	assert.True(t, aVsB)
	assert.Equal(t, aVsB, bVsA)
}
