package logger

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxLogValueBytes bounds a single sanitized value; engine lines and file
// names longer than this are cut with an ellipsis marker.
const maxLogValueBytes = 2048

var namedEscapes = map[rune]string{
	'\n':   `\n`,
	'\r':   `\r`,
	'\t':   `\t`,
	'\x00': `\x00`,
}

// SanitizeForLog escapes control characters so user-supplied names and
// engine output cannot forge log entries or drive the terminal. Printable
// Unicode is preserved.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if esc, ok := namedEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		if r < 0x20 || r == 0x7f {
			b.WriteString(`\x`)
			if r < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strconv.FormatInt(int64(r), 16))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateForLog sanitizes s and cuts it to at most maxLogValueBytes on a
// rune boundary.
func TruncateForLog(s string) string {
	s = SanitizeForLog(s)
	if len(s) <= maxLogValueBytes {
		return s
	}
	cut := maxLogValueBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
