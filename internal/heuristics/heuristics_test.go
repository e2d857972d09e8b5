package heuristics

import "testing"

func TestLooksLikeURL(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"contact me at https://example.com", true},
		{"http://spamsite.example is great", true},
		{"HTTPS://SHOUTING.EXAMPLE", true},
		{"visit www.example.com today", true},
		{"Www.Mixed.Case", true},
		{"no links here", false},
		{"", false},
		// Prefix match only: nothing after the prefix is validated. A
		// trailing "www." is flagged, but a bare scheme with no host
		// character after it is not.
		{"I love www.", true},
		{"I love www.x", true},
		{"https:// ", false},
		{"https://x", true},
		{"wwwdotexample", false},
		{"awww.cute", true},
	}

	for _, tc := range cases {
		if got := LooksLikeURL(tc.text); got != tc.want {
			t.Errorf("LooksLikeURL(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestScanFields(t *testing.T) {
	if ScanFields("clean", "also clean") {
		t.Error("ScanFields flagged clean fields")
	}
	if !ScanFields("clean", "see https://example.com") {
		t.Error("ScanFields missed a link in the second field")
	}
	if ScanFields() {
		t.Error("ScanFields() with no fields returned true")
	}
}
