package tui

import (
	"strings"
	"testing"
)

func TestEditRuneAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"letter", "ab", "c", "abc"},
		{"at sign", "guest", "@", "guest@"},
		{"space", "a", " ", "a "},
		{"paste", "", "guest@example.com", "guest@example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editRune(tc.start, tc.key); got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneBackspace(t *testing.T) {
	if got := editRune("abc", "backspace"); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
	if got := editRune("", "backspace"); got != "" {
		t.Errorf("backspace on empty: got %q", got)
	}
	if got := editRune("café", "backspace"); got != "caf" {
		t.Errorf("multibyte backspace: got %q, want %q", got, "caf")
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "tab", "shift+tab", "ctrl+c", "up", "down"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key); got != "hello" {
				t.Errorf("editRune(hello, %q) = %q, want unchanged", key, got)
			}
		})
	}
}

func TestEditRuneMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	if got := editRune(atLimit, "b"); got != atLimit {
		t.Errorf("expected input clamped at %d runes, got %d", maxInputLen, len([]rune(got)))
	}
	if got := editRune(atLimit, "backspace"); len(got) != maxInputLen-1 {
		t.Errorf("backspace at limit: got %d runes", len(got))
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hell…"},
		{"empty string", "", 5, ""},
		{"multi-byte at boundary", "cafés are nice", 5, "café…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncStr(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"

	got := truncateToHeight(input, 3)
	if strings.Count(got, "\n") > 3 || strings.Contains(got, "line4") {
		t.Errorf("truncateToHeight(5 lines, 3) = %q", got)
	}
	if truncateToHeight(input, 0) != input {
		t.Error("zero max should return the input unchanged")
	}
	if truncateToHeight(input, -1) != input {
		t.Error("negative max should return the input unchanged")
	}
	if truncateToHeight("a\nb\n", 5) != "a\nb\n" {
		t.Error("input within limit should be unchanged")
	}
}

func TestRenderFieldMasksSecrets(t *testing.T) {
	got := renderField("password", "hunter2", "", false, true)
	if strings.Contains(got, "hunter2") {
		t.Errorf("secret field leaked its value: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("•", 7)) {
		t.Errorf("expected 7 mask runes, got %q", got)
	}
}

func TestRenderFieldPlaceholder(t *testing.T) {
	got := renderField("email", "", "attendee@example.com", false, false)
	if !strings.Contains(got, "attendee@example.com") {
		t.Errorf("expected placeholder, got %q", got)
	}
	got = renderField("email", "", "attendee@example.com", true, false)
	if strings.Contains(got, "attendee@example.com") {
		t.Errorf("focused empty field should not show placeholder: %q", got)
	}
}
