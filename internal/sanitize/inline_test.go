package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "https://example.com/pricing", want: "https://example.com/pricing"},
		{name: "empty", in: "   ", want: ""},
		{name: "newlines collapse", in: "line one\n\tline two\r\n", want: "line one line two"},
		{name: "ansi stripped", in: "\x1b[31mred\x1b[0m text", want: "red text"},
		{name: "control chars dropped", in: "be\x07ll\x00 del\x7f", want: "bell del"},
		{name: "invalid utf8 dropped", in: "ok\xff\xfeok", want: "okok"},
		{name: "unicode kept", in: "café ⚡", want: "café ⚡"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Inline(tt.in); got != tt.want {
				t.Fatalf("Inline(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInline_Truncates(t *testing.T) {
	got := Inline(strings.Repeat("é", MaxInline))
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if len(got) > MaxInline+3 {
		t.Fatalf("too long: %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
}
