package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formgate/server/internal/config"
)

func verifierConfig(verifyURL string, timeout time.Duration) config.CaptchaConfig {
	return config.CaptchaConfig{
		SiteKey:   "site-key",
		SecretKey: "secret-key",
		VerifyURL: verifyURL,
		Timeout:   config.Duration{Duration: timeout},
	}
}

func TestVerify_PassThroughWhenUnconfigured(t *testing.T) {
	v := NewVerifier(config.CaptchaConfig{}, nil, nil)

	if v.Enabled() {
		t.Error("Enabled() = true with no keys")
	}
	if !v.Verify(context.Background(), "anything", "203.0.113.9") {
		t.Error("Verify() = false, want pass-through true when unconfigured")
	}
}

func TestVerify_Success(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotSecret = r.PostFormValue("secret")
		gotResponse = r.PostFormValue("response")
		gotRemoteIP = r.PostFormValue("remoteip")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"hostname":"example.com"}`))
	}))
	defer server.Close()

	v := NewVerifier(verifierConfig(server.URL, 2*time.Second), nil, nil)

	if !v.Verify(context.Background(), "challenge-token", "203.0.113.9") {
		t.Fatal("Verify() = false, want true")
	}
	if gotSecret != "secret-key" {
		t.Errorf("secret = %q, want secret-key", gotSecret)
	}
	if gotResponse != "challenge-token" {
		t.Errorf("response = %q, want challenge-token", gotResponse)
	}
	if gotRemoteIP != "203.0.113.9" {
		t.Errorf("remoteip = %q, want 203.0.113.9", gotRemoteIP)
	}
}

func TestVerify_ProviderRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer server.Close()

	v := NewVerifier(verifierConfig(server.URL, 2*time.Second), nil, nil)
	if v.Verify(context.Background(), "bad-token", "") {
		t.Error("Verify() = true for provider rejection, want false")
	}
}

func TestVerify_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream error", http.StatusBadGateway)
	}))
	defer server.Close()

	v := NewVerifier(verifierConfig(server.URL, 2*time.Second), nil, nil)
	if v.Verify(context.Background(), "token", "") {
		t.Error("Verify() = true for 502 response, want false")
	}
}

func TestVerify_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	v := NewVerifier(verifierConfig(server.URL, 2*time.Second), nil, nil)
	if v.Verify(context.Background(), "token", "") {
		t.Error("Verify() = true for malformed body, want false")
	}
}

func TestVerify_TimeoutNormalizesToFalse(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	v := NewVerifier(verifierConfig(server.URL, 50*time.Millisecond), nil, nil)

	start := time.Now()
	got := v.Verify(context.Background(), "token", "")
	elapsed := time.Since(start)

	if got {
		t.Error("Verify() = true for timed-out call, want false")
	}
	if elapsed > time.Second {
		t.Errorf("Verify took %v, want bounded by the configured timeout", elapsed)
	}
}

func TestVerify_MissingResponseToken(t *testing.T) {
	// No server: an empty response token must fail before any network call.
	v := NewVerifier(verifierConfig("http://127.0.0.1:0", time.Second), nil, nil)
	if v.Verify(context.Background(), "", "") {
		t.Error("Verify() = true for empty challenge response, want false")
	}
}

func TestVerify_UnreachableHost(t *testing.T) {
	// Reserved TEST-NET address, connection should fail fast.
	v := NewVerifier(verifierConfig("http://192.0.2.1:9", 200*time.Millisecond), nil, nil)
	if v.Verify(context.Background(), "token", "") {
		t.Error("Verify() = true for unreachable host, want false")
	}
}
