package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.TruncateText("short", 100); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	if got := tp.TruncateText("abcdef", 3); got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
	if got := tp.TruncateText("abcdef", 0); got != "abcdef" {
		t.Errorf("zero max: got %q, want unchanged", got)
	}

	// Truncation must not cut a multi-byte rune in half.
	got := tp.TruncateText("aé", 2)
	if !utf8.ValidString(got) {
		t.Errorf("truncated %q is not valid UTF-8", got)
	}
	if got != "a" {
		t.Errorf("got %q, want a", got)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	clean := "plain text"
	if got := tp.SanitizeUTF8(clean); got != clean {
		t.Errorf("got %q, want unchanged", got)
	}

	dirty := "ok\xff\xfestill ok"
	got := tp.SanitizeUTF8(dirty)
	if !utf8.ValidString(got) {
		t.Errorf("sanitized %q is not valid UTF-8", got)
	}
	if !strings.Contains(got, "still ok") {
		t.Errorf("valid content lost: %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello  world", "hello  world"},
		{"tags removed", "<p>hello <b>world</b></p>", "hello world"},
		{"script dropped", "<p>safe</p><script>alert('x')</script>", "safe"},
		{"style dropped", "<style>p{color:red}</style><p>text</p>", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vérify", "verify"},
		{"ASCII only", "ASCII only"},
		{"señor café", "senor cafe"},
	}
	for _, tt := range tests {
		if got := FoldDiacritics(tt.in); got != tt.want {
			t.Errorf("FoldDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
