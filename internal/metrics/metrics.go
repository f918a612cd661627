package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	quotesComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "quotes_computed_total",
			Help:      "Billing quotes computed, by booking type and cache outcome.",
		},
		[]string{"type", "cache"},
	)

	conflictsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected due to schedule conflicts.",
		},
	)

	rollovers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "rollovers_total",
			Help:      "Next-billing-period computations by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, quotesComputed, conflictsDetected, rollovers)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncQuote records a computed quote. cache is "hit", "miss" or "off".
func IncQuote(bookingType, cache string) {
	quotesComputed.WithLabelValues(bookingType, cache).Inc()
}

// IncConflict records a rejected conflicting booking request.
func IncConflict() {
	conflictsDetected.Inc()
}

// IncRollover records a rollover outcome: "found", "exhausted" or "error".
func IncRollover(outcome string) {
	rollovers.WithLabelValues(outcome).Inc()
}
