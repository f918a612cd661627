package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"carebook/internal/models"
)

// parseDate accepts both bare dates and RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// GET /api/v1/availability/{listingID}?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	listingID := strings.TrimPrefix(r.URL.Path, "/api/v1/availability/")
	if listingID == "" || strings.Contains(listingID, "/") {
		writeError(w, http.StatusBadRequest, "listing id is required")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := parseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	available, err := s.bookings.CheckDateAvailable(r.Context(), listingID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"listing_id": listingID,
		"date":       date.Format("2006-01-02"),
		"available":  available,
	})
}

// POST /api/v1/availability/check
func (s *HTTPServer) handleAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		ListingID  string               `json:"listingId"`
		Schedule   []models.WeekdayRule `json:"schedule"`
		StartDate  string               `json:"startDate"`
		EndDate    *string              `json:"endDate"`
		Exceptions models.ExceptionSet  `json:"exceptions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ListingID == "" {
		writeError(w, http.StatusBadRequest, "listingId is required")
		return
	}

	req, err := recurringRequest("", "", body.Schedule, body.StartDate, body.EndDate, body.Exceptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	available, err := s.bookings.CheckRecurringAvailable(r.Context(), body.ListingID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"listing_id": body.ListingID,
		"available":  available,
	})
}

// POST /api/v1/quotes/one-time
func (s *HTTPServer) handleQuoteOneTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Rate          string                         `json:"rate"`
		PaymentMethod string                         `json:"paymentMethod"`
		Dates         []string                       `json:"dates"`
		Times         map[string]models.SessionTimes `json:"times"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	dates := make([]time.Time, 0, len(body.Dates))
	for _, raw := range body.Dates {
		date, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+raw)
			return
		}
		dates = append(dates, date)
	}

	summary, err := s.bookings.QuoteOneTime(r.Context(), models.OneTimeQuoteRequest{
		Rate:          body.Rate,
		PaymentMethod: body.PaymentMethod,
		Dates:         dates,
		Times:         body.Times,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /api/v1/quotes/recurring
func (s *HTTPServer) handleQuoteRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Rate          string               `json:"rate"`
		PaymentMethod string               `json:"paymentMethod"`
		Schedule      []models.WeekdayRule `json:"schedule"`
		StartDate     string               `json:"startDate"`
		EndDate       *string              `json:"endDate"`
		Exceptions    models.ExceptionSet  `json:"exceptions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := recurringRequest(body.Rate, body.PaymentMethod, body.Schedule, body.StartDate, body.EndDate, body.Exceptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.bookings.QuoteRecurring(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /api/v1/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		ListingID     string               `json:"listingId"`
		CustomerID    string               `json:"customerId"`
		ProviderID    string               `json:"providerId"`
		Type          string               `json:"type"`
		Rate          string               `json:"rate"`
		PaymentMethod string               `json:"paymentMethod"`
		Schedule      []models.WeekdayRule `json:"schedule"`
		StartDate     string               `json:"startDate"`
		EndDate       *string              `json:"endDate"`
		Dates         []string             `json:"dates"`
		Exceptions    models.ExceptionSet  `json:"exceptions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ListingID == "" || body.CustomerID == "" || body.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "listingId, customerId and providerId are required")
		return
	}

	startDate, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	var endDate *time.Time
	if body.EndDate != nil {
		end, err := parseDate(*body.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		endDate = &end
	}
	dates := make([]time.Time, 0, len(body.Dates))
	for _, raw := range body.Dates {
		date, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+raw)
			return
		}
		dates = append(dates, date)
	}

	booking := &models.Booking{
		ListingID:     body.ListingID,
		CustomerID:    body.CustomerID,
		ProviderID:    body.ProviderID,
		Type:          body.Type,
		Rate:          body.Rate,
		PaymentMethod: body.PaymentMethod,
		Schedule:      body.Schedule,
		StartDate:     startDate,
		EndDate:       endDate,
		Dates:         dates,
		Exceptions:    body.Exceptions,
	}

	if err := s.bookings.CreateBooking(r.Context(), booking); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      booking.ID,
		"status":  booking.Status,
		"version": booking.Version,
	})
}

// handleBooking routes /api/v1/bookings/{id} and its sub-resources.
func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetBooking(w, r, id)
	case sub == "transition" && r.Method == http.MethodPost:
		s.handleTransition(w, r, id)
	case sub == "exceptions" && r.Method == http.MethodPatch:
		s.handleExceptions(w, r, id)
	case sub == "next-charge" && r.Method == http.MethodGet:
		s.handleNextCharge(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, id string) {
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// POST /api/v1/bookings/{id}/transition
func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Action  string `json:"action"`
		Version int64  `json:"version"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	switch body.Action {
	case "accept":
		err = s.bookings.AcceptBooking(r.Context(), id, body.Version)
	case "decline":
		err = s.bookings.DeclineBooking(r.Context(), id, body.Version)
	case "cancel":
		err = s.bookings.CancelBooking(r.Context(), id, body.Version)
	case "complete":
		err = s.bookings.CompleteBooking(r.Context(), id, body.Version)
	default:
		writeError(w, http.StatusBadRequest, "unknown action: "+body.Action)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// PATCH /api/v1/bookings/{id}/exceptions
func (s *HTTPServer) handleExceptions(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Version    int64               `json:"version"`
		Exceptions models.ExceptionSet `json:"exceptions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.bookings.ModifyExceptions(r.Context(), id, body.Version, body.Exceptions); err != nil {
		writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// GET /api/v1/bookings/{id}/next-charge
func (s *HTTPServer) handleNextCharge(w http.ResponseWriter, r *http.Request, id string) {
	next, err := s.bookings.NextChargeDate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"booking_id":     id,
		"next_charge_at": next.Format(time.RFC3339),
	})
}

// POST /api/v1/exports
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	var body struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := parseDate(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseDate(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	path, err := s.exporter.ExportBillingPeriod(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func recurringRequest(rate, paymentMethod string, rules []models.WeekdayRule, startDate string, endDate *string, exceptions models.ExceptionSet) (models.RecurringQuoteRequest, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return models.RecurringQuoteRequest{}, err
	}
	var end *time.Time
	if endDate != nil {
		parsed, err := parseDate(*endDate)
		if err != nil {
			return models.RecurringQuoteRequest{}, err
		}
		end = &parsed
	}
	return models.RecurringQuoteRequest{
		Rate:          rate,
		PaymentMethod: paymentMethod,
		Schedule:      rules,
		StartDate:     start,
		EndDate:       end,
		Exceptions:    exceptions,
	}, nil
}
