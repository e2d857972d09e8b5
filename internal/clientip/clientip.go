// Package clientip extracts a best-effort client network identifier from
// reverse-proxy headers. The value is advisory only - these headers are
// client-influenced and must not drive security decisions beyond coarse
// rate-limit keys, CAPTCHA hints, and logging.
package clientip

import (
	"net/http"
	"strings"
)

// FromHeader returns the client IP from forwarding headers, or "" when
// none is present. X-Forwarded-For wins, taking the first comma-separated
// entry (the original client, per reverse-proxy convention); X-Real-IP is
// the fallback.
func FromHeader(h http.Header) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	return strings.TrimSpace(h.Get("X-Real-IP"))
}

// FromRequest is FromHeader over the request's headers.
func FromRequest(r *http.Request) string {
	return FromHeader(r.Header)
}
