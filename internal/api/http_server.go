// Package api exposes the booking engine over HTTP: availability checks,
// billing quotes, booking lifecycle and the billing export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"carebook/internal/billing"
	"carebook/internal/config"
	"carebook/internal/database"
	"carebook/internal/domain"
	"carebook/internal/export"
	"carebook/internal/metrics"
	"carebook/internal/rollover"
	"carebook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	exporter *export.Exporter
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, bookings domain.BookingService, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, bookings: bookings, exporter: exporter, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/availability/check", srv.handleAvailabilityCheck)
	mux.HandleFunc("/api/v1/availability/", srv.handleAvailability)
	mux.HandleFunc("/api/v1/quotes/one-time", srv.handleQuoteOneTime)
	mux.HandleFunc("/api/v1/quotes/recurring", srv.handleQuoteRecurring)
	mux.HandleFunc("/api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBooking)
	mux.HandleFunc("/api/v1/exports", srv.handleExport)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrMalformedInput),
		errors.Is(err, service.ErrEmptySchedule),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScheduleConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, database.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rollover.ErrNoNextPeriod):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
