package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if got := truncate("short", 60); got != "short" {
		t.Fatalf("short text changed: %q", got)
	}

	long := strings.Repeat("ü", 80)
	got := truncate(long, 60)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("ü", 57)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}

	exact := strings.Repeat("あ", 60)
	if got := truncate(exact, 60); got != exact {
		t.Fatalf("text at the limit changed: %q", got)
	}
}
