package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Logging   LoggingConfig        `yaml:"logging"`
	Security  SecurityConfig       `yaml:"security"`
	Captcha   CaptchaConfig        `yaml:"captcha"`
	Storage   StorageConfig        `yaml:"storage"`
	Notify    NotifyConfig         `yaml:"notify"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Breaker   CircuitBreakerConfig `yaml:"circuit_breaker"`
	Forms     map[string]Form      `yaml:"forms"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AdminAPIKey        string   `yaml:"admin_api_key"` // Protects /metrics and submission listing (empty disables protection)
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// EnforcementMode controls what happens when anti-spam secrets are absent.
type EnforcementMode string

const (
	// EnforcementOpen skips token and CAPTCHA checks when their secrets
	// are unconfigured. Matches the historical fail-open posture; the
	// degradation is logged at startup.
	EnforcementOpen EnforcementMode = "open"

	// EnforcementClosed refuses to start without a token secret and
	// rejects submissions when the CAPTCHA provider is unreachable.
	EnforcementClosed EnforcementMode = "closed"
)

// SecurityConfig holds token signing and replay protection settings.
type SecurityConfig struct {
	Enforcement EnforcementMode `yaml:"enforcement"`   // open | closed (default: open)
	TokenSecret string          `yaml:"token_secret"`  // HMAC secret; empty disables token enforcement in open mode
	TokenMaxAge Duration        `yaml:"token_max_age"` // Reject tokens older than this (default: 1h)
	NonceTTL    Duration        `yaml:"nonce_ttl"`     // How long spent nonces are remembered (default: token_max_age)
	NonceLimit  int             `yaml:"nonce_limit"`   // Size bound of the in-memory nonce store (default: 10000)
}

// CaptchaConfig holds third-party challenge verification settings.
type CaptchaConfig struct {
	SiteKey   string   `yaml:"site_key"`
	SecretKey string   `yaml:"secret_key"`
	VerifyURL string   `yaml:"verify_url"` // siteverify endpoint (default: Cloudflare Turnstile)
	Timeout   Duration `yaml:"timeout"`    // Hard timeout on the outbound call (default: 5s)
}

// Enabled reports whether both keys are configured.
func (c CaptchaConfig) Enabled() bool {
	return c.SiteKey != "" && c.SecretKey != ""
}

// StorageConfig holds the accepted-submission store configuration.
type StorageConfig struct {
	Backend           string             `yaml:"backend"` // "memory", "postgres", or "mongodb"
	PostgresURL       string             `yaml:"postgres_url"`
	PostgresTableName string             `yaml:"postgres_table_name"`
	PostgresPool      PostgresPoolConfig `yaml:"postgres_pool"`
	MongoDBURL        string             `yaml:"mongodb_url"`
	MongoDBDatabase   string             `yaml:"mongodb_database"`
	MongoDBCollection string             `yaml:"mongodb_collection"`
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // Maximum number of open connections (default: 25)
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // Maximum number of idle connections (default: 5)
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // Maximum lifetime of connections (default: 5m)
}

// NotifyConfig holds webhook notification settings for accepted submissions.
type NotifyConfig struct {
	URL     string            `yaml:"url"`     // Empty disables notifications
	Headers map[string]string `yaml:"headers"` // Custom headers (auth tokens etc)
	Timeout Duration          `yaml:"timeout"` // Request timeout (default: 3s)
}

// RateLimitConfig holds rate limiting configuration.
// Multi-tier limits keep automated senders out without restricting legitimate visitors.
type RateLimitConfig struct {
	// Global rate limiting (across all clients)
	GlobalEnabled bool     `yaml:"global_enabled"`
	GlobalLimit   int      `yaml:"global_limit"`
	GlobalWindow  Duration `yaml:"global_window"`

	// Per-form rate limiting (identified by the form ID in the URL)
	PerFormEnabled bool     `yaml:"per_form_enabled"`
	PerFormLimit   int      `yaml:"per_form_limit"`
	PerFormWindow  Duration `yaml:"per_form_window"`

	// Per-IP rate limiting (fallback for everything else)
	PerIPEnabled bool     `yaml:"per_ip_enabled"`
	PerIPLimit   int      `yaml:"per_ip_limit"`
	PerIPWindow  Duration `yaml:"per_ip_window"`
}

// CircuitBreakerConfig holds circuit breaker configuration for external services.
type CircuitBreakerConfig struct {
	Enabled bool                 `yaml:"enabled"` // Enable circuit breakers (default: true)
	Captcha BreakerServiceConfig `yaml:"captcha"` // CAPTCHA siteverify breaker
	Webhook BreakerServiceConfig `yaml:"webhook"` // Notification webhook breaker
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`         // Max requests in half-open state (default: 3)
	Interval            Duration `yaml:"interval"`             // Stats reset interval in closed state (default: 60s)
	Timeout             Duration `yaml:"timeout"`              // Open state timeout before half-open (default: 30s)
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"` // Consecutive failures to trip (default: 5)
	FailureRatio        float64  `yaml:"failure_ratio"`        // Failure ratio to trip 0.0-1.0 (default: 0.5)
	MinRequests         uint32   `yaml:"min_requests"`         // Minimum requests before checking ratio (default: 10)
}

// Form describes a configured form. An empty Forms map accepts any form ID.
type Form struct {
	Description string `yaml:"description"`
	NotifyURL   string `yaml:"notify_url"` // Overrides notify.url for this form
}
