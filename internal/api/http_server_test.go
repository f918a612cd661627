package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carebook/internal/config"
	"carebook/internal/database"
	"carebook/internal/events"
	"carebook/internal/models"
	"carebook/internal/repository"
	"carebook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Port: 0},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "secret-key", Name: "test-client"},
				{Key: "read-only", Name: "reader", Permissions: []string{"read:availability", "read:quotes"}},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 100},
	}
}

func newTestServer(t *testing.T, cfg config.APIConfig) *HTTPServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := repository.NewMemorySummaryCache(time.Minute)
	svc := service.NewBookingService(db, cache, events.NewEventBus(), 365, &logger)
	return NewHTTPServer(cfg, svc, nil, &logger)
}

func doRequest(srv *HTTPServer, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

// nextWeekday returns the first future occurrence of the weekday, at
// least a week out so bookings are never rejected as past.
func nextWeekday(day models.Weekday) time.Time {
	t := time.Now().UTC().AddDate(0, 0, 7)
	for models.WeekdayOf(t) != day {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func createBookingPayload(listingID string) map[string]any {
	start := nextWeekday(models.Monday)
	return map[string]any{
		"listingId":     listingID,
		"customerId":    "cust-1",
		"providerId":    "prov-1",
		"type":          models.BookingTypeRecurring,
		"rate":          "25.00",
		"paymentMethod": models.PaymentMethodCard,
		"schedule": []map[string]string{
			{"dayOfWeek": "mon", "startTime": "9:00am", "endTime": "5:00pm"},
		},
		"startDate": start.Format("2006-01-02"),
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "secret-key", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health and metrics are exempt.
	rec = doRequest(srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthPermissions(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// read-only key cannot create bookings.
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", "read-only", createBookingPayload("listing-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "read-only", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	srv := newTestServer(t, cfg)

	rec := doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "secret-key", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "secret-key", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestQuoteOneTimeEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/quotes/one-time", "secret-key", map[string]any{
		"rate":          "20.00",
		"paymentMethod": "card",
		"dates":         []string{"2027-01-05", "2027-01-08"},
		"times": map[string]any{
			"2027-01-05": map[string]string{"startTime": "9:00am", "endTime": "5:00pm"},
			"2027-01-08": map[string]string{"startTime": "1:00pm", "endTime": "5:00pm"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.BillingSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "240.00", summary.Payout)
	assert.Len(t, summary.LineItems, 2)
}

func TestQuoteOneTimeEndpointMalformed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/quotes/one-time", "secret-key", map[string]any{
		"rate":          "20.00",
		"paymentMethod": "card",
		"dates":         []string{"2027-01-05"},
		"times":         map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteRecurringEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/quotes/recurring", "secret-key", map[string]any{
		"rate":          "25.00",
		"paymentMethod": "card",
		"schedule": []map[string]string{
			{"dayOfWeek": "mon", "startTime": "9:00am", "endTime": "5:00pm"},
		},
		"startDate": "2027-01-04",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.BillingSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, models.BookingTypeRecurring, summary.Type)
	assert.Equal(t, "200.00", summary.Payout)
}

func TestBookingLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", "secret-key", createBookingPayload("listing-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)
	require.NotEmpty(t, created.ID)

	// Completing a pending booking is rejected.
	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings/"+created.ID+"/transition", "secret-key",
		map[string]any{"action": "complete", "version": created.Version})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings/"+created.ID+"/transition", "secret-key",
		map[string]any{"action": "accept", "version": created.Version})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var accepted models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.NextChargeAt)

	rec = doRequest(srv, http.MethodGet, "/api/v1/bookings/"+created.ID+"/next-charge", "secret-key", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A second overlapping booking conflicts.
	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", "secret-key", createBookingPayload("listing-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/bookings/missing", "secret-key", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExceptionsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", "secret-key", createBookingPayload("listing-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID      string `json:"id"`
		Version int64  `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	removed := nextWeekday(models.Monday).AddDate(0, 0, 7)
	rec = doRequest(srv, http.MethodPatch, "/api/v1/bookings/"+created.ID+"/exceptions", "secret-key",
		map[string]any{
			"version": created.Version,
			"exceptions": map[string]any{
				"addedDays": []any{},
				"removedDays": []any{map[string]string{
					"date": removed.Format(time.RFC3339),
					"type": models.ExceptionRemoveDate,
				}},
				"changedDays": []any{},
			},
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Len(t, updated.Exceptions.RemovedDays, 1)

	// Stale version is a conflict.
	rec = doRequest(srv, http.MethodPatch, "/api/v1/bookings/"+created.ID+"/exceptions", "secret-key",
		map[string]any{
			"version":    created.Version,
			"exceptions": map[string]any{"addedDays": []any{}, "removedDays": []any{}, "changedDays": []any{}},
		})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodGet, "/api/v1/quotes/one-time", "secret-key", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(srv, http.MethodDelete, "/api/v1/availability/listing-1", "secret-key", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExportEndpointUnconfigured(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/exports", "secret-key",
		map[string]string{"start": "2027-01-03", "end": "2027-01-09"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAvailabilityEndpointValidation(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1", "secret-key", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing date")

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=nope", "secret-key", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/availability/listing-1?date=2027-01-04", "secret-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["available"])
}
