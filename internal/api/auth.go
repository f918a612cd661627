package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"

	"carebook/internal/config"
)

const (
	apiKeyHeaderDefault  = "x-api-key"
	permReadAvailability = "read:availability"
	permReadQuotes       = "read:quotes"
	permWriteBookings    = "write:bookings"
	clientKeyUnknown     = "unknown"
)

var errPermissionDenied = fmt.Errorf("permission denied")

// HTTPAuth provides API-key auth and per-key rate limiting.
type HTTPAuth struct {
	cfg     config.APIConfig
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, limiter: newRateLimiter(&cfg)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled && requiresAuth(r.URL.Path) {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requiresAuth exempts the probes and scrape endpoints.
func requiresAuth(path string) bool {
	return path != "/healthz" && path != "/metrics"
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookup(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

// lookup compares against every configured key in constant time so a
// mismatch leaks nothing about prefixes.
func (a *HTTPAuth) lookup(apiKey string) (config.APIClientKey, bool) {
	var (
		found  config.APIClientKey
		hit    bool
		secret = []byte(apiKey)
	)
	for _, client := range a.cfg.Auth.APIKeys {
		if subtle.ConstantTimeCompare([]byte(client.Key), secret) == 1 {
			found = client
			hit = true
		}
	}
	return found, hit
}

// checkPermissions treats an empty permissions list as allow-all.
func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/availability"):
		return permReadAvailability
	case strings.HasPrefix(path, "/api/v1/quotes"):
		return permReadQuotes
	case strings.HasPrefix(path, "/api/v1/bookings"), path == "/api/v1/exports":
		return permWriteBookings
	default:
		return ""
	}
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	lim := a.limiter.getLimiter(a.clientKey(r))
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) headerName() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return header
}
