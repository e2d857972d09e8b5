package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Security.Enforcement == "" {
		c.Security.Enforcement = EnforcementOpen
	}
	if c.Security.TokenMaxAge.Duration <= 0 {
		c.Security.TokenMaxAge = Duration{Duration: time.Hour}
	}
	// Spent nonces must outlive the tokens that carry them, otherwise a
	// captured token could be replayed after the nonce record expires.
	if c.Security.NonceTTL.Duration <= 0 {
		c.Security.NonceTTL = c.Security.TokenMaxAge
	}
	if c.Security.NonceLimit <= 0 {
		c.Security.NonceLimit = 10000
	}

	if c.Captcha.VerifyURL == "" {
		c.Captcha.VerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	}
	if c.Captcha.Timeout.Duration <= 0 {
		c.Captcha.Timeout = Duration{Duration: 5 * time.Second}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.PostgresTableName == "" {
		c.Storage.PostgresTableName = "formgate_submissions"
	}
	if c.Storage.MongoDBCollection == "" {
		c.Storage.MongoDBCollection = "submissions"
	}

	if c.Notify.Timeout.Duration <= 0 {
		c.Notify.Timeout = Duration{Duration: 3 * time.Second}
	}
	if c.Notify.Headers == nil {
		c.Notify.Headers = make(map[string]string)
	}
	if c.Forms == nil {
		c.Forms = map[string]Form{}
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	switch c.Security.Enforcement {
	case EnforcementOpen, EnforcementClosed:
	default:
		errs = append(errs, fmt.Sprintf("security.enforcement must be %q or %q, got %q",
			EnforcementOpen, EnforcementClosed, c.Security.Enforcement))
	}

	// Closed mode refuses to run without a token secret: silently
	// degrading to "no anti-spam" is exactly what closed mode forbids.
	if c.Security.Enforcement == EnforcementClosed && c.Security.TokenSecret == "" {
		errs = append(errs, "security.token_secret is required when security.enforcement is 'closed' (set FORMGATE_TOKEN_SECRET)")
	}

	// Half-configured CAPTCHA is always a mistake, not a mode.
	if (c.Captcha.SiteKey == "") != (c.Captcha.SecretKey == "") {
		errs = append(errs, "captcha.site_key and captcha.secret_key must be set together")
	}
	if c.Security.Enforcement == EnforcementClosed && !c.Captcha.Enabled() {
		errs = append(errs, "captcha.site_key and captcha.secret_key are required when security.enforcement is 'closed'")
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			errs = append(errs, "storage.postgres_url is required when storage.backend is 'postgres'")
		}
	case "mongodb":
		if c.Storage.MongoDBURL == "" {
			errs = append(errs, "storage.mongodb_url is required when storage.backend is 'mongodb'")
		}
		if c.Storage.MongoDBDatabase == "" {
			errs = append(errs, "storage.mongodb_database is required when storage.backend is 'mongodb'")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be 'memory', 'postgres', or 'mongodb', got %q", c.Storage.Backend))
	}

	for id, form := range c.Forms {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "forms must not contain an empty form ID")
		}
		if form.NotifyURL != "" && !strings.HasPrefix(form.NotifyURL, "http://") && !strings.HasPrefix(form.NotifyURL, "https://") {
			errs = append(errs, fmt.Sprintf("forms.%s.notify_url must be an http(s) URL", id))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ApplyPostgresPoolSettings applies connection pool settings to a database connection.
// If pool config is not specified, applies sensible defaults.
func ApplyPostgresPoolSettings(db *sql.DB, pool PostgresPoolConfig) {
	maxOpen := pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	maxLifetime := pool.ConnMaxLifetime.Duration
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}
