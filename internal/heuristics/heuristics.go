// Package heuristics holds low-confidence content checks applied to
// free-text submission fields. A hit is an advisory signal for the
// submission pipeline, not a standalone hard gate; false positives are
// acceptable.
package heuristics

import "regexp"

// urlPattern matches an http(s) scheme followed by any non-whitespace, or
// a bare www. prefix. Prefix match only - what follows is not validated,
// so even a trailing "www." counts as a link.
var urlPattern = regexp.MustCompile(`(?i)(https?://\S|www\.)`)

// LooksLikeURL reports whether the text appears to contain a link. Pure
// and total; never fails.
func LooksLikeURL(text string) bool {
	return urlPattern.MatchString(text)
}

// ScanFields runs LooksLikeURL over each field and returns true on the
// first hit.
func ScanFields(fields ...string) bool {
	for _, f := range fields {
		if LooksLikeURL(f) {
			return true
		}
	}
	return false
}
