package config

import (
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use FORMGATE_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "FORMGATE_SERVER_ADDRESS")
	setIfEnv(&c.Server.AdminAPIKey, "FORMGATE_ADMIN_API_KEY")
	if v := os.Getenv("FORMGATE_CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.Server.CORSAllowedOrigins = origins
	}

	// Logging config
	setIfEnv(&c.Logging.Level, "FORMGATE_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "FORMGATE_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "FORMGATE_ENVIRONMENT")

	// Security config
	if v := os.Getenv("FORMGATE_ENFORCEMENT"); v != "" {
		c.Security.Enforcement = EnforcementMode(strings.ToLower(v))
	}
	setIfEnv(&c.Security.TokenSecret, "FORMGATE_TOKEN_SECRET")
	setDurationIfEnv(&c.Security.TokenMaxAge, "FORMGATE_TOKEN_MAX_AGE")
	setDurationIfEnv(&c.Security.NonceTTL, "FORMGATE_NONCE_TTL")
	if v := os.Getenv("FORMGATE_NONCE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Security.NonceLimit = n
		}
	}

	// Captcha config
	setIfEnv(&c.Captcha.SiteKey, "FORMGATE_CAPTCHA_SITE_KEY")
	setIfEnv(&c.Captcha.SecretKey, "FORMGATE_CAPTCHA_SECRET_KEY")
	setIfEnv(&c.Captcha.VerifyURL, "FORMGATE_CAPTCHA_VERIFY_URL")
	setDurationIfEnv(&c.Captcha.Timeout, "FORMGATE_CAPTCHA_TIMEOUT")

	// Storage config
	setIfEnv(&c.Storage.Backend, "FORMGATE_STORAGE_BACKEND")
	setIfEnv(&c.Storage.PostgresURL, "FORMGATE_STORAGE_POSTGRES_URL")
	setIfEnv(&c.Storage.MongoDBURL, "FORMGATE_STORAGE_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "FORMGATE_STORAGE_MONGODB_DATABASE")
	setIfEnv(&c.Storage.MongoDBCollection, "FORMGATE_STORAGE_MONGODB_COLLECTION")

	// Notify config
	setIfEnv(&c.Notify.URL, "FORMGATE_NOTIFY_URL")
	setDurationIfEnv(&c.Notify.Timeout, "FORMGATE_NOTIFY_TIMEOUT")
	// Load notification headers (FORMGATE_NOTIFY_HEADER_*)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "FORMGATE_NOTIFY_HEADER_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "FORMGATE_NOTIFY_HEADER_")
		if name == "" {
			continue
		}
		if c.Notify.Headers == nil {
			c.Notify.Headers = make(map[string]string)
		}
		headerName := textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(name, "_", "-"))
		c.Notify.Headers[headerName] = parts[1]
	}
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}
