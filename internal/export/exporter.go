// Package export produces the operations-facing Excel workbook: a weekly
// schedule grid of accepted bookings plus their current billing line
// items.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carebook/internal/domain"
	"carebook/internal/models"
	"carebook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	scheduleSheet  = "Schedule"
	lineItemsSheet = "Line Items"
)

type Exporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, path: path, logger: logger}
}

// ExportBillingPeriod writes the workbook for bookings whose windows
// touch [start, end] and returns the file path.
func (e *Exporter) ExportBillingPeriod(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	bookings, err := e.repo.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("load bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeScheduleSheet(f, bookings, start); err != nil {
		return "", err
	}
	if err := e.writeLineItemsSheet(f, bookings); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("billing_%s_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("billing workbook created")
	return filePath, nil
}

// writeScheduleSheet lays out one row per booking with the session times
// of its effective week under the weekday columns.
func (e *Exporter) writeScheduleSheet(f *excelize.File, bookings []*models.Booking, reference time.Time) error {
	index, err := f.NewSheet(scheduleSheet)
	if err != nil {
		return fmt.Errorf("create schedule sheet: %w", err)
	}
	f.SetActiveSheet(index)

	weekStart := schedule.WeekStart(reference)
	_ = f.SetCellValue(scheduleSheet, "A1", fmt.Sprintf("Week of %s", weekStart.Format("Jan 02, 2006")))
	_ = f.MergeCell(scheduleSheet, "A1", "I1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(scheduleSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	headers := []string{"Listing", "Booking"}
	for day := models.Sunday; day <= models.Saturday; day++ {
		headers = append(headers, day.String())
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(scheduleSheet, cell, header)
		_ = f.SetCellStyle(scheduleSheet, cell, cell, headerStyle)
	}

	row := 3
	for _, booking := range bookings {
		if booking.Type != models.BookingTypeRecurring {
			continue
		}

		listingCell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(scheduleSheet, listingCell, booking.ListingID)
		bookingCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(scheduleSheet, bookingCell, booking.ID)

		effective := schedule.ResolveEffectiveWeek(booking.Schedule, booking.Window(), booking.Exceptions, reference)
		for _, rule := range effective {
			cell, _ := excelize.CoordinatesToCellName(int(rule.Day)+3, row)
			_ = f.SetCellValue(scheduleSheet, cell, fmt.Sprintf("%s - %s", rule.StartTime, rule.EndTime))
		}
		row++
	}

	_ = f.SetColWidth(scheduleSheet, "A", "B", 24)
	_ = f.SetColWidth(scheduleSheet, "C", "I", 18)
	return nil
}

func (e *Exporter) writeLineItemsSheet(f *excelize.File, bookings []*models.Booking) error {
	if _, err := f.NewSheet(lineItemsSheet); err != nil {
		return fmt.Errorf("create line items sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	headers := []string{"Booking", "Date", "Start", "End", "Hours", "Amount", "Booking Fee"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(lineItemsSheet, cell, header)
		_ = f.SetCellStyle(lineItemsSheet, cell, cell, headerStyle)
	}

	row := 2
	var totalHours float64
	for _, booking := range bookings {
		for _, item := range booking.LastLineItems {
			values := []interface{}{
				booking.ID, item.ShortDate, item.StartTime, item.EndTime,
				item.Hours, item.Amount, item.BookingFee,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				_ = f.SetCellValue(lineItemsSheet, cell, v)
			}
			totalHours += item.Hours
			row++
		}
	}

	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetCellValue(lineItemsSheet, totalCell, "Total")
	hoursCell, _ := excelize.CoordinatesToCellName(5, row)
	_ = f.SetCellValue(lineItemsSheet, hoursCell, totalHours)
	_ = f.SetCellStyle(lineItemsSheet, totalCell, totalCell, headerStyle)

	_ = f.SetColWidth(lineItemsSheet, "A", "A", 36)
	_ = f.SetColWidth(lineItemsSheet, "B", "G", 14)
	return nil
}
