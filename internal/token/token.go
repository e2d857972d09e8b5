// Package token mints and verifies the signed form tokens that prove a
// submission came from a form this service rendered. A token is
// base64url(JSON payload) + "." + base64url(HMAC-SHA256 signature) and
// travels as an opaque hidden form field.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is the signed content of a form token.
type Payload struct {
	// IssuedAt is the mint time in milliseconds since epoch.
	IssuedAt int64 `json:"ts"`

	// Nonce is a single-use identifier, unique per mint.
	Nonce string `json:"nonce"`
}

// Status classifies the outcome of a verification.
type Status int

const (
	// StatusOK means the signature and payload checked out.
	StatusOK Status = iota

	// StatusSkipped means no secret is configured and enforcement is off.
	StatusSkipped

	// StatusMalformed means the token did not parse (wrong shape, bad
	// encoding, missing fields).
	StatusMalformed

	// StatusForged means the signature did not match the payload.
	StatusForged
)

// String returns the status as a short label for logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusMalformed:
		return "malformed"
	case StatusForged:
		return "forged"
	default:
		return "unknown"
	}
}

// Result is the outcome of verifying a token.
type Result struct {
	Status  Status
	Payload Payload
	Age     time.Duration
}

// Signer mints and verifies form tokens with a server-held secret.
// A Signer with an empty secret is valid and operates in unenforced mode:
// Mint returns "" and Verify reports StatusSkipped for any input.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// New creates a Signer. An empty secret disables enforcement rather than
// erroring; callers decide at configuration time whether that is allowed.
func New(secret string) *Signer {
	s := &Signer{now: time.Now}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

// Enforced reports whether a secret is configured.
func (s *Signer) Enforced() bool {
	return len(s.secret) > 0
}

// Mint returns a freshly signed token, or "" when no secret is configured.
func (s *Signer) Mint() string {
	if !s.Enforced() {
		return ""
	}

	payload := Payload{
		IssuedAt: s.now().UnixMilli(),
		Nonce:    uuid.NewString(),
	}

	// Payload is two fixed fields; marshal cannot fail.
	raw, _ := json.Marshal(payload)
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	return encoded + "." + s.sign(encoded)
}

// Verify checks a token produced by Mint (or adversarial input). It never
// mutates state and returns values for all expected failure modes.
//
// The signature is recomputed over the payload segment and compared in
// constant time before the payload is decoded, so nothing about the token
// contents leaks through timing.
func (s *Signer) Verify(tok string) Result {
	if !s.Enforced() {
		return Result{Status: StatusSkipped}
	}

	encoded, sig, ok := strings.Cut(tok, ".")
	if !ok || encoded == "" || sig == "" {
		return Result{Status: StatusMalformed}
	}

	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return Result{Status: StatusForged}
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Result{Status: StatusMalformed}
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Result{Status: StatusMalformed}
	}
	if payload.IssuedAt <= 0 || payload.Nonce == "" {
		return Result{Status: StatusMalformed}
	}

	return Result{
		Status:  StatusOK,
		Payload: payload,
		Age:     s.now().Sub(time.UnixMilli(payload.IssuedAt)),
	}
}

// sign computes the base64url HMAC-SHA256 signature of the encoded payload.
func (s *Signer) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
