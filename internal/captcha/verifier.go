// Package captcha verifies client challenge responses against a
// third-party siteverify endpoint (Cloudflare Turnstile compatible).
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/formgate/server/internal/circuitbreaker"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/httputil"
	"github.com/formgate/server/internal/logger"
	"github.com/formgate/server/internal/metrics"
)

// verifyResponse is the JSON body returned by the siteverify endpoint.
type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier calls the configured challenge-verification service. All
// failure modes (network error, timeout, non-2xx status, malformed body)
// normalize to a boolean false - the caller never sees an error for an
// expected failure.
type Verifier struct {
	cfg      config.CaptchaConfig
	client   *http.Client
	breakers *circuitbreaker.Manager
	metrics  *metrics.Metrics
}

// NewVerifier creates a Verifier. When the config has no key pair the
// verifier is a pass-through and performs no network calls.
func NewVerifier(cfg config.CaptchaConfig, breakers *circuitbreaker.Manager, collector *metrics.Metrics) *Verifier {
	return &Verifier{
		cfg:      cfg,
		client:   httputil.NewClient(cfg.Timeout.Duration),
		breakers: breakers,
		metrics:  collector,
	}
}

// Enabled reports whether verification is enforced.
func (v *Verifier) Enabled() bool {
	return v.cfg.Enabled()
}

// Verify checks the client-supplied challenge response. Returns true when
// verification is not configured (pass-through, consistent with the token
// signer's unenforced mode) or when the provider confirms success.
//
// The outbound call carries a hard timeout so a slow or unreachable
// provider cannot stall form submission; timeout is treated the same as
// an explicit failure.
func (v *Verifier) Verify(ctx context.Context, response, remoteIP string) bool {
	if !v.Enabled() {
		return true
	}
	if response == "" {
		v.metrics.ObserveCaptchaCall("missing_response", 0)
		return false
	}

	start := time.Now()
	result, err := v.breakers.Execute(circuitbreaker.ServiceCaptcha, func() (interface{}, error) {
		return v.siteverify(ctx, response, remoteIP)
	})
	elapsed := time.Since(start)

	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Dur("elapsed", elapsed).
			Msg("captcha verification unreachable")
		v.metrics.ObserveCaptchaCall("unreachable", elapsed)
		return false
	}

	out := result.(*verifyResponse)
	if !out.Success {
		log := logger.FromContext(ctx)
		log.Debug().
			Strs("error_codes", out.ErrorCodes).
			Msg("captcha verification failed")
		v.metrics.ObserveCaptchaCall("failed", elapsed)
		return false
	}

	v.metrics.ObserveCaptchaCall("success", elapsed)
	return true
}

// siteverify performs the outbound POST and decodes the provider verdict.
func (v *Verifier) siteverify(ctx context.Context, response, remoteIP string) (*verifyResponse, error) {
	form := url.Values{}
	form.Set("secret", v.cfg.SecretKey)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("siteverify status %d", res.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode siteverify response: %w", err)
	}
	return &out, nil
}
