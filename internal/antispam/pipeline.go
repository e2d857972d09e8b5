package antispam

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/formgate/server/internal/captcha"
	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/heuristics"
	"github.com/formgate/server/internal/logger"
	"github.com/formgate/server/internal/metrics"
	"github.com/formgate/server/internal/nonce"
	"github.com/formgate/server/internal/token"
)

// Reason is the internal classification of a rejection. It is recorded in
// logs and metrics but never returned to the sender.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMissingFields     Reason = "missing_fields"
	ReasonInvalidToken      Reason = "invalid_token"
	ReasonTokenExpired      Reason = "token_expired"
	ReasonReplayedNonce     Reason = "replayed_nonce"
	ReasonSuspiciousContent Reason = "suspicious_content"
	ReasonCaptchaFailed     Reason = "captcha_failed"
)

// Request carries one form submission through the checks.
type Request struct {
	FormID          string
	Name            string
	Email           string
	Message         string
	Token           string
	CaptchaResponse string
	ClientIP        string
}

// Verdict is the pipeline outcome. Reason is set only when Accepted is false.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

func accept() Verdict              { return Verdict{Accepted: true} }
func reject(reason Reason) Verdict { return Verdict{Reason: reason} }

// Checker runs every submission through the anti-spam checks in a fixed
// order: field shape, token signature, token age, nonce replay, content
// heuristics, CAPTCHA. The cheapest checks run first so forged traffic is
// dropped before any outbound call happens.
type Checker struct {
	signer   *token.Signer
	nonces   nonce.Store
	verifier *captcha.Verifier
	maxAge   time.Duration
	nonceTTL time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Options configures a Checker.
type Options struct {
	Security config.SecurityConfig
	Signer   *token.Signer
	Nonces   nonce.Store
	Verifier *captcha.Verifier
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewChecker wires the checks together. Signer and Nonces are required;
// Verifier may be nil when CAPTCHA is not configured.
func NewChecker(opts Options) *Checker {
	maxAge := opts.Security.TokenMaxAge.Duration
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	nonceTTL := opts.Security.NonceTTL.Duration
	if nonceTTL <= 0 {
		nonceTTL = maxAge
	}

	return &Checker{
		signer:   opts.Signer,
		nonces:   opts.Nonces,
		verifier: opts.Verifier,
		maxAge:   maxAge,
		nonceTTL: nonceTTL,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Check classifies one submission. It consumes the token's nonce on a
// valid signature, so a request that passes the token check cannot be
// replayed even if a later check rejects it.
func (c *Checker) Check(ctx context.Context, req Request) Verdict {
	start := time.Now()
	verdict := c.run(ctx, req)

	if verdict.Accepted {
		c.metrics.ObserveSubmission(req.FormID, "accepted", time.Since(start))
	} else {
		c.metrics.ObserveSubmission(req.FormID, "rejected", time.Since(start))
		c.metrics.ObserveRejection(req.FormID, string(verdict.Reason))
		c.logger.Info().
			Str("form", req.FormID).
			Str("reason", string(verdict.Reason)).
			Str("email", logger.RedactEmail(req.Email)).
			Str("client_ip", req.ClientIP).
			Msg("submission rejected")
	}

	if sized, ok := c.nonces.(interface{ Len() int }); ok {
		c.metrics.SetNonceStoreSize(sized.Len())
	}

	return verdict
}

func (c *Checker) run(ctx context.Context, req Request) Verdict {
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Email) == "" {
		return reject(ReasonMissingFields)
	}

	result := c.signer.Verify(req.Token)
	switch result.Status {
	case token.StatusOK:
		if result.Age < 0 || result.Age > c.maxAge {
			return reject(ReasonTokenExpired)
		}
		if !c.nonces.ConsumeOnce(result.Payload.Nonce, c.nonceTTL) {
			return reject(ReasonReplayedNonce)
		}
	case token.StatusSkipped:
		// No secret configured; open enforcement lets the submission
		// continue to the remaining checks.
	default:
		return reject(ReasonInvalidToken)
	}

	if heuristics.ScanFields(req.Name, req.Email, req.Message) {
		c.metrics.ObserveHeuristicFlag(req.FormID, "url_in_content")
		return reject(ReasonSuspiciousContent)
	}

	if c.verifier != nil && c.verifier.Enabled() {
		if !c.verifier.Verify(ctx, req.CaptchaResponse, req.ClientIP) {
			return reject(ReasonCaptchaFailed)
		}
	}

	return accept()
}
