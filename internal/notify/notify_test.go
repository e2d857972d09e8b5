package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/storage"
)

func testSubmission() storage.Submission {
	return storage.Submission{
		ID:        "sub_123",
		FormID:    "contact",
		Name:      "Ada",
		Email:     "ada@example.com",
		Message:   "Hello there",
		ClientIP:  "203.0.113.7",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestNew_NoURLReturnsNoop(t *testing.T) {
	n := New(config.NotifyConfig{}, nil)
	if _, ok := n.(NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", n)
	}
}

func TestNew_PerFormURLEnables(t *testing.T) {
	forms := map[string]config.Form{
		"contact": {NotifyURL: "https://hooks.example.com/contact"},
	}
	n := New(config.NotifyConfig{}, forms)
	if _, ok := n.(*WebhookNotifier); !ok {
		t.Fatalf("expected WebhookNotifier, got %T", n)
	}
}

func TestDeliver_PostsEventPayload(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hook-token" {
			t.Errorf("Authorization = %q, want Bearer hook-token", got)
		}
		body, _ := io.ReadAll(r.Body)
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.NotifyConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer hook-token"},
	}
	n := New(cfg, nil, WithRetryConfig(fastRetry())).(*WebhookNotifier)

	n.SubmissionAccepted(context.Background(), testSubmission())

	select {
	case ev := <-received:
		if ev.EventType != "submission.accepted" {
			t.Errorf("EventType = %q, want submission.accepted", ev.EventType)
		}
		if ev.EventID == "" {
			t.Error("EventID is empty")
		}
		if ev.SubmissionID != "sub_123" || ev.FormID != "contact" {
			t.Errorf("unexpected submission fields: %+v", ev)
		}
		if ev.Message != "Hello there" {
			t.Errorf("Message = %q", ev.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}

func TestDeliver_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{URL: srv.URL}, nil, WithRetryConfig(fastRetry())).(*WebhookNotifier)

	event := Event{EventID: "evt_test", EventType: "submission.accepted"}
	if err := n.deliver(context.Background(), srv.URL, event); err != nil {
		t.Fatalf("deliver() = %v, want success after retries", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDeliver_FailsAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{URL: srv.URL}, nil, WithRetryConfig(fastRetry())).(*WebhookNotifier)

	event := Event{EventID: "evt_test", EventType: "submission.accepted"}
	if err := n.deliver(context.Background(), srv.URL, event); err == nil {
		t.Fatal("deliver() = nil, want error after exhausting attempts")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestTargetURL_PerFormOverride(t *testing.T) {
	forms := map[string]config.Form{
		"sales": {NotifyURL: "https://hooks.example.com/sales"},
	}
	n := New(config.NotifyConfig{URL: "https://hooks.example.com/default"}, forms).(*WebhookNotifier)

	if got := n.targetURL("sales"); got != "https://hooks.example.com/sales" {
		t.Errorf("targetURL(sales) = %q", got)
	}
	if got := n.targetURL("contact"); got != "https://hooks.example.com/default" {
		t.Errorf("targetURL(contact) = %q", got)
	}
}

func TestGenerateEventID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateEventID()
		if len(id) != len("evt_")+24 {
			t.Fatalf("unexpected id format: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate event id: %q", id)
		}
		seen[id] = true
	}
}
