package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/formgate/server/internal/circuitbreaker"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/httputil"
	"github.com/formgate/server/internal/metrics"
	"github.com/formgate/server/internal/storage"
)

// Notifier delivers accepted submissions to user-defined webhooks.
type Notifier interface {
	SubmissionAccepted(ctx context.Context, sub storage.Submission)
}

// NoopNotifier ignores all events.
type NoopNotifier struct{}

func (NoopNotifier) SubmissionAccepted(context.Context, storage.Submission) {}

// Event is the JSON payload posted to the webhook.
// EventID is the idempotency key; consumers MUST use it to dedupe deliveries.
type Event struct {
	EventID        string    `json:"eventId"`
	EventType      string    `json:"eventType"` // Always "submission.accepted"
	EventTimestamp time.Time `json:"eventTimestamp"`

	SubmissionID string    `json:"submissionId"`
	FormID       string    `json:"formId"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Message      string    `json:"message"`
	ClientIP     string    `json:"clientIp,omitempty"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// RetryConfig holds webhook retry configuration.
type RetryConfig struct {
	MaxAttempts     int           // Maximum delivery attempts (default: 3)
	InitialInterval time.Duration // Initial backoff interval (default: 500ms)
	MaxInterval     time.Duration // Maximum backoff interval (default: 5s)
	Multiplier      float64       // Backoff multiplier (default: 2.0)
}

// DefaultRetryConfig returns sensible defaults for webhook retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// WebhookNotifier posts accepted submissions to a configured URL.
// Delivery runs in a background goroutine so accepting a submission
// never waits on the webhook endpoint.
type WebhookNotifier struct {
	cfg        config.NotifyConfig
	forms      map[string]config.Form
	retryCfg   RetryConfig
	httpClient *http.Client
	logger     zerolog.Logger
	breakers   *circuitbreaker.Manager
	metrics    *metrics.Metrics
}

// Option customizes the webhook notifier.
type Option func(*WebhookNotifier)

// WithLogger sets a custom logger for delivery operations.
func WithLogger(logger zerolog.Logger) Option {
	return func(n *WebhookNotifier) {
		n.logger = logger
	}
}

// WithBreakers enables circuit breaker protection for webhook calls.
func WithBreakers(breakers *circuitbreaker.Manager) Option {
	return func(n *WebhookNotifier) {
		n.breakers = breakers
	}
}

// WithMetrics sets the metrics collector for delivery observability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *WebhookNotifier) {
		n.metrics = m
	}
}

// WithRetryConfig sets custom retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(n *WebhookNotifier) {
		n.retryCfg = cfg
	}
}

// New constructs a webhook notifier. Returns a NoopNotifier when neither
// the global URL nor any per-form URL is configured.
func New(cfg config.NotifyConfig, forms map[string]config.Form, opts ...Option) Notifier {
	if cfg.URL == "" && !anyFormURL(forms) {
		return NoopNotifier{}
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	n := &WebhookNotifier{
		cfg:        cfg,
		forms:      forms,
		retryCfg:   DefaultRetryConfig(),
		httpClient: httputil.NewClient(timeout),
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

func anyFormURL(forms map[string]config.Form) bool {
	for _, f := range forms {
		if f.NotifyURL != "" {
			return true
		}
	}
	return false
}

// SubmissionAccepted dispatches the submission asynchronously.
// The EventID is generated once and reused across retry attempts.
func (n *WebhookNotifier) SubmissionAccepted(ctx context.Context, sub storage.Submission) {
	if n == nil {
		return
	}

	url := n.targetURL(sub.FormID)
	if url == "" {
		return
	}

	event := Event{
		EventID:        generateEventID(),
		EventType:      "submission.accepted",
		EventTimestamp: time.Now().UTC(),
		SubmissionID:   sub.ID,
		FormID:         sub.FormID,
		Name:           sub.Name,
		Email:          sub.Email,
		Message:        sub.Message,
		ClientIP:       sub.ClientIP,
		ReceivedAt:     sub.CreatedAt,
	}

	go func() {
		if err := n.deliver(context.Background(), url, event); err != nil {
			n.logger.Error().
				Err(err).
				Str("event_id", event.EventID).
				Str("form", event.FormID).
				Msg("notify: webhook failed after all attempts")
		}
	}()
}

// targetURL resolves the per-form override, falling back to the global URL.
func (n *WebhookNotifier) targetURL(formID string) string {
	if f, ok := n.forms[formID]; ok && f.NotifyURL != "" {
		return f.NotifyURL
	}
	return n.cfg.URL
}

// deliver attempts the webhook with exponential backoff.
func (n *WebhookNotifier) deliver(ctx context.Context, url string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	var lastErr error
	interval := n.retryCfg.InitialInterval

	for attempt := 1; attempt <= n.retryCfg.MaxAttempts; attempt++ {
		err := n.sendOnce(ctx, url, payload)

		if err == nil {
			n.metrics.ObserveNotification("success")
			if attempt > 1 {
				n.logger.Info().
					Int("attempt", attempt).
					Str("event_id", event.EventID).
					Msg("notify: webhook succeeded after retry")
			}
			return nil
		}

		lastErr = err
		n.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", n.retryCfg.MaxAttempts).
			Str("event_id", event.EventID).
			Msg("notify: webhook attempt failed")

		if attempt < n.retryCfg.MaxAttempts {
			time.Sleep(interval)
			interval = time.Duration(float64(interval) * n.retryCfg.Multiplier)
			if interval > n.retryCfg.MaxInterval {
				interval = n.retryCfg.MaxInterval
			}
		}
	}

	n.metrics.ObserveNotification("failed")
	return fmt.Errorf("webhook failed after %d attempts: %w", n.retryCfg.MaxAttempts, lastErr)
}

// sendOnce performs a single HTTP delivery, breaker-wrapped when configured.
func (n *WebhookNotifier) sendOnce(ctx context.Context, url string, payload []byte) error {
	_, err := n.breakers.Execute(circuitbreaker.ServiceWebhook, func() (interface{}, error) {
		return nil, n.sendHTTP(ctx, url, payload)
	})
	return err
}

// sendHTTP performs the actual HTTP request.
func (n *WebhookNotifier) sendHTTP(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	contentType := n.cfg.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)

	for k, v := range n.cfg.Headers {
		if k == "" || strings.EqualFold(k, "content-type") {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("received status %d from %s", resp.StatusCode, url)
	}

	return nil
}

// generateEventID creates a unique event identifier for idempotency.
// Format: "evt_" + 24 hex characters (12 random bytes).
func generateEventID() string {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return "evt_" + hex.EncodeToString(randomBytes)
}
