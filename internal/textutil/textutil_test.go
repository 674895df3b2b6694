package textutil_test

import (
	"strings"
	"testing"

	"lathe/internal/textutil"
)

func TestExcerptTruncatesToMax(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := textutil.Excerpt(long, 100)
	if len(got) != 100 {
		t.Fatalf("excerpt length = %d, want 100", len(got))
	}
}

func TestExcerptCollapsesWhitespace(t *testing.T) {
	got := textutil.Excerpt("  error:\n  something\tbroke  ", 100)
	if got != "error: something broke" {
		t.Fatalf("excerpt = %q", got)
	}
}

func TestExcerptShortInputUnchanged(t *testing.T) {
	if got := textutil.Excerpt("short", 100); got != "short" {
		t.Fatalf("excerpt = %q", got)
	}
}

func TestExcerptZeroMax(t *testing.T) {
	if got := textutil.Excerpt("anything", 0); got != "" {
		t.Fatalf("excerpt = %q, want empty", got)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"processing": "Processing",
		"completed":  "Completed",
		"":           "",
		" failed ":   "Failed",
	}
	for input, want := range cases {
		if got := textutil.Label(input); got != want {
			t.Errorf("Label(%q) = %q, want %q", input, got, want)
		}
	}
}
