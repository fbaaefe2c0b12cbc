package tool

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestApplyOutputLimits_ByLines(t *testing.T) {
	in := "a\nb\nc\nd"
	out, tl, tb := ApplyOutputLimits(in, Limits{MaxLines: 2, MaxBytes: 0})
	if out != "a\nb" {
		t.Fatalf("unexpected output: %q", out)
	}
	if !tl || tb {
		t.Fatalf("unexpected flags tl=%v tb=%v", tl, tb)
	}
}

func TestApplyOutputLimits_ByBytes(t *testing.T) {
	in := "abcdef"
	out, tl, tb := ApplyOutputLimits(in, Limits{MaxLines: 0, MaxBytes: 3})
	if out != "abc" {
		t.Fatalf("unexpected output: %q", out)
	}
	if tl || !tb {
		t.Fatalf("unexpected flags tl=%v tb=%v", tl, tb)
	}
}

func TestApplyOutputLimits_Both(t *testing.T) {
	in := strings.Repeat("x", 10) + "\n" + strings.Repeat("y", 10) + "\n" + strings.Repeat("z", 10)
	out, tl, tb := ApplyOutputLimits(in, Limits{MaxLines: 2, MaxBytes: 15})
	if !tl || !tb {
		t.Fatalf("expected both truncations, got tl=%v tb=%v", tl, tb)
	}
	if len([]byte(out)) > 15 {
		t.Fatalf("output not byte-truncated: len=%d", len([]byte(out)))
	}
}

func TestApplyOutputLimits_KeepsRuneBoundary(t *testing.T) {
	out, _, tb := ApplyOutputLimits("héllo", Limits{MaxBytes: 2})
	if !tb {
		t.Fatal("expected byte truncation")
	}
	if !utf8.ValidString(out) {
		t.Fatalf("truncated output is not valid utf-8: %q", out)
	}
	if out != "h" {
		t.Fatalf("expected %q, got %q", "h", out)
	}
}
