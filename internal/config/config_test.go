package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Security.Enforcement != EnforcementOpen {
		t.Errorf("Security.Enforcement = %q, want open", cfg.Security.Enforcement)
	}
	if cfg.Security.TokenMaxAge.Duration != time.Hour {
		t.Errorf("Security.TokenMaxAge = %v, want 1h", cfg.Security.TokenMaxAge.Duration)
	}
	if cfg.Security.NonceTTL.Duration != time.Hour {
		t.Errorf("Security.NonceTTL = %v, want token_max_age default", cfg.Security.NonceTTL.Duration)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Captcha.Timeout.Duration != 5*time.Second {
		t.Errorf("Captcha.Timeout = %v, want 5s", cfg.Captcha.Timeout.Duration)
	}
	if cfg.Captcha.Enabled() {
		t.Error("Captcha.Enabled() = true with no keys configured")
	}
}

func TestLoad_ClosedModeRequiresSecrets(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_ENFORCEMENT", "closed")
	defer os.Clearenv()

	_, err := Load("")
	if err == nil {
		t.Fatal("Load succeeded in closed mode without secrets")
	}
	if !strings.Contains(err.Error(), "security.token_secret is required") {
		t.Errorf("error = %q, want token_secret requirement", err)
	}
	if !strings.Contains(err.Error(), "captcha.site_key") {
		t.Errorf("error = %q, want captcha key requirement", err)
	}
}

func TestLoad_ClosedModeValid(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_ENFORCEMENT", "closed")
	os.Setenv("FORMGATE_TOKEN_SECRET", "super-secret")
	os.Setenv("FORMGATE_CAPTCHA_SITE_KEY", "site")
	os.Setenv("FORMGATE_CAPTCHA_SECRET_KEY", "secret")
	defer os.Clearenv()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Security.Enforcement != EnforcementClosed {
		t.Errorf("Enforcement = %q, want closed", cfg.Security.Enforcement)
	}
	if !cfg.Captcha.Enabled() {
		t.Error("Captcha.Enabled() = false with both keys set")
	}
}

func TestLoad_HalfConfiguredCaptchaRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_CAPTCHA_SITE_KEY", "site-only")
	defer os.Clearenv()

	_, err := Load("")
	if err == nil {
		t.Fatal("Load succeeded with only one captcha key")
	}
	if !strings.Contains(err.Error(), "must be set together") {
		t.Errorf("error = %q, want must-be-set-together", err)
	}
}

func TestLoad_InvalidEnforcementMode(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_ENFORCEMENT", "maybe")
	defer os.Clearenv()

	if _, err := Load(""); err == nil {
		t.Fatal("Load accepted unknown enforcement mode")
	}
}

func TestLoad_StorageBackendValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{
			name:    "postgres without url",
			envVars: map[string]string{"FORMGATE_STORAGE_BACKEND": "postgres"},
			wantErr: "storage.postgres_url is required",
		},
		{
			name:    "mongodb without url",
			envVars: map[string]string{"FORMGATE_STORAGE_BACKEND": "mongodb"},
			wantErr: "storage.mongodb_url is required",
		},
		{
			name:    "unknown backend",
			envVars: map[string]string{"FORMGATE_STORAGE_BACKEND": "redis"},
			wantErr: "storage.backend must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer os.Clearenv()

			_, err := Load("")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	os.Clearenv()

	content := `
server:
  address: ":9090"
security:
  token_secret: yaml-secret
  token_max_age: 30m
rate_limit:
  per_ip_limit: 5
forms:
  contact:
    description: Main contact form
  quote:
    notify_url: https://hooks.example.com/quote
`
	path := filepath.Join(t.TempDir(), "formgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Security.TokenSecret != "yaml-secret" {
		t.Errorf("TokenSecret = %q, want yaml-secret", cfg.Security.TokenSecret)
	}
	if cfg.Security.TokenMaxAge.Duration != 30*time.Minute {
		t.Errorf("TokenMaxAge = %v, want 30m", cfg.Security.TokenMaxAge.Duration)
	}
	if cfg.Security.NonceTTL.Duration != 30*time.Minute {
		t.Errorf("NonceTTL = %v, want token_max_age default", cfg.Security.NonceTTL.Duration)
	}
	if cfg.RateLimit.PerIPLimit != 5 {
		t.Errorf("PerIPLimit = %d, want 5", cfg.RateLimit.PerIPLimit)
	}
	if len(cfg.Forms) != 2 {
		t.Fatalf("len(Forms) = %d, want 2", len(cfg.Forms))
	}
	if cfg.Forms["quote"].NotifyURL != "https://hooks.example.com/quote" {
		t.Errorf("Forms[quote].NotifyURL = %q", cfg.Forms["quote"].NotifyURL)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	os.Clearenv()

	content := "security:\n  token_secret: from-yaml\n"
	path := filepath.Join(t.TempDir(), "formgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	os.Setenv("FORMGATE_TOKEN_SECRET", "from-env")
	defer os.Clearenv()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Security.TokenSecret != "from-env" {
		t.Errorf("TokenSecret = %q, want env override", cfg.Security.TokenSecret)
	}
}

func TestEnvOverrides_NotifyHeaders(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_NOTIFY_URL", "https://hooks.example.com/leads")
	os.Setenv("FORMGATE_NOTIFY_HEADER_AUTHORIZATION", "Bearer tok")
	os.Setenv("FORMGATE_NOTIFY_HEADER_X_SOURCE", "formgate")
	defer os.Clearenv()

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Notify.URL != "https://hooks.example.com/leads" {
		t.Errorf("Notify.URL = %q", cfg.Notify.URL)
	}
	if got := cfg.Notify.Headers["Authorization"]; got != "Bearer tok" {
		t.Errorf("Authorization header = %q, want Bearer tok", got)
	}
	if got := cfg.Notify.Headers["X-Source"]; got != "formgate" {
		t.Errorf("X-Source header = %q, want formgate", got)
	}
}

func TestEnvOverrides_CORSList(t *testing.T) {
	os.Clearenv()
	os.Setenv("FORMGATE_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	defer os.Clearenv()

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if len(cfg.Server.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins = %v, want 2 entries", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Server.CORSAllowedOrigins[0] != "https://a.example" || cfg.Server.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.Server.CORSAllowedOrigins)
	}
}

func TestDuration_YAMLFormats(t *testing.T) {
	os.Clearenv()

	content := "captcha:\n  timeout: 120\n"
	path := filepath.Join(t.TempDir(), "formgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// Bare numbers are interpreted as seconds.
	if cfg.Captcha.Timeout.Duration != 120*time.Second {
		t.Errorf("Captcha.Timeout = %v, want 120s", cfg.Captcha.Timeout.Duration)
	}
}
