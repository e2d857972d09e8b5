package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for formgate.
type Metrics struct {
	// Token metrics
	TokensMintedTotal *prometheus.CounterVec

	// Submission metrics
	SubmissionsTotal     *prometheus.CounterVec
	SubmissionsRejected  *prometheus.CounterVec
	SubmissionDuration   *prometheus.HistogramVec
	HeuristicFlagsTotal  *prometheus.CounterVec
	NonceStoreSize       prometheus.Gauge

	// CAPTCHA metrics
	CaptchaCallsTotal   *prometheus.CounterVec
	CaptchaCallDuration prometheus.Histogram

	// Webhook notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Storage metrics
	StoreWritesTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		TokensMintedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_tokens_minted_total",
				Help: "Total number of form tokens minted",
			},
			[]string{"form"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_submissions_total",
				Help: "Total number of form submissions processed",
			},
			[]string{"form", "outcome"},
		),
		SubmissionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_submissions_rejected_total",
				Help: "Total number of rejected submissions by internal reason",
			},
			[]string{"form", "reason"},
		),
		SubmissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formgate_submission_duration_seconds",
				Help:    "Time taken to run the anti-spam pipeline (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"form"},
		),
		HeuristicFlagsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_heuristic_flags_total",
				Help: "Total number of submissions flagged by content heuristics",
			},
			[]string{"form", "check"},
		),
		NonceStoreSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "formgate_nonce_store_size",
				Help: "Number of spent nonces currently tracked",
			},
		),

		CaptchaCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_captcha_calls_total",
				Help: "Total number of outbound CAPTCHA verification calls",
			},
			[]string{"outcome"},
		),
		CaptchaCallDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "formgate_captcha_call_duration_seconds",
				Help:    "Duration of outbound CAPTCHA verification calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_notifications_total",
				Help: "Total number of webhook notifications for accepted submissions",
			},
			[]string{"outcome"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_rate_limit_hits_total",
				Help: "Total number of requests rejected by rate limiting",
			},
			[]string{"limit_type"},
		),

		StoreWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formgate_store_writes_total",
				Help: "Total number of submission store writes",
			},
			[]string{"backend", "outcome"},
		),
	}
}

// ObserveTokenMinted records a minted form token.
func (m *Metrics) ObserveTokenMinted(form string) {
	if m == nil {
		return
	}
	m.TokensMintedTotal.WithLabelValues(form).Inc()
}

// ObserveStoreWrite records a submission store write.
func (m *Metrics) ObserveStoreWrite(backend, outcome string) {
	if m == nil {
		return
	}
	m.StoreWritesTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveSubmission records one pipeline run.
func (m *Metrics) ObserveSubmission(form, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(form, outcome).Inc()
	m.SubmissionDuration.WithLabelValues(form).Observe(duration.Seconds())
}

// ObserveRejection records a rejection with its internal reason.
func (m *Metrics) ObserveRejection(form, reason string) {
	if m == nil {
		return
	}
	m.SubmissionsRejected.WithLabelValues(form, reason).Inc()
}

// ObserveCaptchaCall records one outbound verification call.
func (m *Metrics) ObserveCaptchaCall(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CaptchaCallsTotal.WithLabelValues(outcome).Inc()
	m.CaptchaCallDuration.Observe(duration.Seconds())
}

// SetNonceStoreSize records the current number of tracked nonces.
func (m *Metrics) SetNonceStoreSize(n int) {
	if m == nil {
		return
	}
	m.NonceStoreSize.Set(float64(n))
}

// ObserveHeuristicFlag records a content heuristic hit.
func (m *Metrics) ObserveHeuristicFlag(form, check string) {
	if m == nil {
		return
	}
	m.HeuristicFlagsTotal.WithLabelValues(form, check).Inc()
}

// ObserveNotification records a webhook delivery outcome.
func (m *Metrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimit records a rate limit rejection.
func (m *Metrics) ObserveRateLimit(limitType string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(limitType).Inc()
}
