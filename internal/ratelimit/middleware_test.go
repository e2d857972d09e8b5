package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.GlobalEnabled {
		t.Error("Expected global rate limiting to be enabled by default")
	}
	if cfg.GlobalLimit != 600 {
		t.Errorf("Expected global limit 600, got %d", cfg.GlobalLimit)
	}
	if !cfg.PerFormEnabled {
		t.Error("Expected per-form rate limiting to be enabled by default")
	}
	if cfg.PerFormLimit != 60 {
		t.Errorf("Expected per-form limit 60, got %d", cfg.PerFormLimit)
	}
	if !cfg.PerIPEnabled {
		t.Error("Expected per-IP rate limiting to be enabled by default")
	}
	if cfg.PerIPLimit != 20 {
		t.Errorf("Expected per-IP limit 20, got %d", cfg.PerIPLimit)
	}
}

func TestGlobalLimiter_Disabled(t *testing.T) {
	handler := GlobalLimiter(Config{GlobalEnabled: false})(okHandler())

	// Should allow unlimited requests when disabled
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestGlobalLimiter_EnforcesLimit(t *testing.T) {
	cfg := Config{
		GlobalEnabled: true,
		GlobalLimit:   5,
		GlobalWindow:  1 * time.Minute,
	}
	handler := GlobalLimiter(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i, w.Code)
		}
	}

	// 6th request should be rate limited, regardless of source address
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after limit exceeded, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on rate limited response")
	}
}

func TestFormLimiter_KeysByFormParam(t *testing.T) {
	cfg := Config{
		PerFormEnabled: true,
		PerFormLimit:   3,
		PerFormWindow:  1 * time.Minute,
	}

	r := chi.NewRouter()
	r.Route("/v1/forms/{form}", func(r chi.Router) {
		r.Use(FormLimiter(cfg))
		r.Post("/submissions", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	send := func(form string) int {
		req := httptest.NewRequest("POST", "/v1/forms/"+form+"/submissions", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		if code := send("contact"); code != http.StatusOK {
			t.Errorf("contact request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("contact"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for exhausted form, got %d", code)
	}

	// A different form has its own budget
	if code := send("sales"); code != http.StatusOK {
		t.Errorf("Expected 200 for fresh form, got %d", code)
	}
}

func TestIPLimiter_UsesForwardedAddress(t *testing.T) {
	cfg := Config{
		PerIPEnabled: true,
		PerIPLimit:   2,
		PerIPWindow:  1 * time.Minute,
	}
	handler := IPLimiter(cfg)(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest("POST", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234" // same edge proxy for everyone
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("203.0.113.5"); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := send("203.0.113.5"); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := send("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for exhausted client, got %d", code)
	}

	// Another client behind the same proxy is unaffected
	if code := send("203.0.113.9"); code != http.StatusOK {
		t.Errorf("Expected 200 for different client, got %d", code)
	}
}
