package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInline bounds one line of terminal output.
const MaxInline = 240

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// Inline makes untrusted text (urls, tool output, error messages) safe to print on one
// terminal line: escape sequences and control characters are dropped, line breaks and
// tabs become spaces, and the result is capped at MaxInline bytes.
func Inline(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > MaxInline {
		cut := MaxInline
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "..."
	}
	return out
}
