package schedule

import (
	"testing"
	"time"

	"carebook/internal/models"

	"github.com/stretchr/testify/assert"
)

// Week under test: Sunday 2026-08-02 .. Saturday 2026-08-08.
var (
	sunday    = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	monday    = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	wednesday = time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
)

func TestWeekStart(t *testing.T) {
	assert.Equal(t, sunday, WeekStart(sunday))
	assert.Equal(t, sunday, WeekStart(monday))
	assert.Equal(t, sunday, WeekStart(saturday))
	assert.Equal(t, sunday, WeekStart(wednesday.Add(13*time.Hour+30*time.Minute)))

	nextSunday := sunday.AddDate(0, 0, 7)
	assert.Equal(t, nextSunday, WeekStart(nextSunday.AddDate(0, 0, 3)))
}

func TestDateForWeekday(t *testing.T) {
	assert.Equal(t, monday, DateForWeekday(wednesday, models.Monday))
	assert.Equal(t, saturday, DateForWeekday(sunday, models.Saturday))
	assert.Equal(t, sunday, DateForWeekday(saturday, models.Sunday))
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(monday, monday.Add(23*time.Hour)))
	assert.False(t, SameDay(monday, monday.AddDate(0, 0, 1)))
}

func TestWithinWindow(t *testing.T) {
	end := wednesday
	window := models.BookingWindow{StartDate: monday, EndDate: &end}

	assert.True(t, WithinWindow(monday, window))
	assert.True(t, WithinWindow(wednesday, window), "end date is inclusive")
	assert.False(t, WithinWindow(wednesday.AddDate(0, 0, 1), window))
	assert.False(t, WithinWindow(sunday, window))

	open := models.BookingWindow{StartDate: monday}
	assert.True(t, WithinWindow(monday.AddDate(10, 0, 0), open))
}

func TestFormatting(t *testing.T) {
	at := time.Date(2026, 8, 3, 9, 0, 0, 0, time.FixedZone("EDT", -4*60*60))
	assert.Equal(t, "2026-08-03T09:00:00-04:00", FormatISO(at))
	assert.Equal(t, "Aug 03", FormatShort(at))
}
