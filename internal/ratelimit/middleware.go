package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/formgate/server/internal/clientip"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/errors"
	"github.com/formgate/server/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	// Global rate limiting (across all clients)
	GlobalEnabled bool
	GlobalLimit   int           // requests per window
	GlobalWindow  time.Duration // time window

	// Per-form rate limiting (identified by the form ID in the URL)
	PerFormEnabled bool
	PerFormLimit   int
	PerFormWindow  time.Duration

	// Per-IP rate limiting (fallback when the form is not identified)
	PerIPEnabled bool
	PerIPLimit   int
	PerIPWindow  time.Duration

	// Metrics collector (optional)
	Metrics *metrics.Metrics
}

// FromConfig converts the YAML-level settings into limiter configuration.
func FromConfig(cfg config.RateLimitConfig, m *metrics.Metrics) Config {
	return Config{
		GlobalEnabled:  cfg.GlobalEnabled,
		GlobalLimit:    cfg.GlobalLimit,
		GlobalWindow:   cfg.GlobalWindow.Duration,
		PerFormEnabled: cfg.PerFormEnabled,
		PerFormLimit:   cfg.PerFormLimit,
		PerFormWindow:  cfg.PerFormWindow.Duration,
		PerIPEnabled:   cfg.PerIPEnabled,
		PerIPLimit:     cfg.PerIPLimit,
		PerIPWindow:    cfg.PerIPWindow.Duration,
		Metrics:        m,
	}
}

// DefaultConfig returns sensible default rate limits.
// Generous enough for legitimate visitors, tight enough to blunt a flood.
func DefaultConfig() Config {
	return Config{
		// Global: 600 req/min (10 req/sec) - prevents DoS
		GlobalEnabled: true,
		GlobalLimit:   600,
		GlobalWindow:  1 * time.Minute,

		// Per-form: 60 req/min - stops a single form being hammered
		PerFormEnabled: true,
		PerFormLimit:   60,
		PerFormWindow:  1 * time.Minute,

		// Per-IP: 20 req/min - individual sender limit
		PerIPEnabled: true,
		PerIPLimit:   20,
		PerIPWindow:  1 * time.Minute,
	}
}

// createRateLimitHandler creates a standardized rate limit handler function.
// This eliminates duplication across global, per-form, and per-IP limiters.
func createRateLimitHandler(
	limitType string,
	windowSeconds int,
	metricsCollector *metrics.Metrics,
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		metricsCollector.ObserveRateLimit(limitType)

		w.Header().Set("Retry-After", fmt.Sprintf("%d", windowSeconds))
		errors.WriteError(w, errors.ErrCodeRateLimited,
			"Rate limit exceeded. Please try again later.",
			map[string]interface{}{"retry_after_seconds": windowSeconds})
	}
}

// GlobalLimiter creates a global rate limiter middleware.
func GlobalLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return passthrough
	}

	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithKeyFuncs(func(*http.Request) (string, error) {
			return "global", nil
		}),
		httprate.WithLimitHandler(
			createRateLimitHandler("global", int(cfg.GlobalWindow.Seconds()), cfg.Metrics),
		),
	)
}

// FormLimiter creates a per-form rate limiter middleware.
// The form ID comes from the chi URL parameter, so this must be mounted
// inside the route that declares {form}.
func FormLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerFormEnabled {
		return passthrough
	}

	return httprate.Limit(
		cfg.PerFormLimit,
		cfg.PerFormWindow,
		httprate.WithKeyFuncs(formKeyExtractor),
		httprate.WithLimitHandler(
			createRateLimitHandler("per_form", int(cfg.PerFormWindow.Seconds()), cfg.Metrics),
		),
	)
}

// IPLimiter creates a per-IP rate limiter middleware.
func IPLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerIPEnabled {
		return passthrough
	}

	return httprate.Limit(
		cfg.PerIPLimit,
		cfg.PerIPWindow,
		httprate.WithKeyFuncs(ipKeyExtractor),
		httprate.WithLimitHandler(
			createRateLimitHandler("per_ip", int(cfg.PerIPWindow.Seconds()), cfg.Metrics),
		),
	)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// formKeyExtractor is a httprate.KeyFunc that keys on the form ID in the URL.
func formKeyExtractor(r *http.Request) (string, error) {
	if form := chi.URLParam(r, "form"); form != "" {
		return "form:" + form, nil
	}
	// Fall back to IP-based limiting
	return ipKeyExtractor(r)
}

// ipKeyExtractor keys on the proxy-forwarded client address when present.
// Deployments behind a CDN see the edge's address in RemoteAddr, which
// would collapse every visitor into one bucket.
func ipKeyExtractor(r *http.Request) (string, error) {
	if ip := clientip.FromRequest(r); ip != "" {
		return "ip:" + ip, nil
	}
	return httprate.KeyByIP(r)
}
