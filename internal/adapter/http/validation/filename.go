package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameBytes matches the common filesystem name limit.
const maxFilenameBytes = 255

const fallbackName = "file"

// SanitizeFilename makes a user-supplied or generated name safe to use as a
// single path element and inside a quoted header parameter. Separators,
// quotes and control characters become underscores; Unicode is kept; the
// result is cut to 255 bytes with the extension preserved.
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7F:
			return '_'
		case r == '"', r == '\\', r == '/', r == ':':
			return '_'
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.Trim(cleaned, "_") == "" {
		return fallbackName
	}
	if len(cleaned) > maxFilenameBytes {
		cleaned = truncateKeepingExt(cleaned)
	}
	return cleaned
}

func truncateKeepingExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameBytes {
		return truncateBytes(name, maxFilenameBytes)
	}
	return truncateBytes(strings.TrimSuffix(name, ext), maxFilenameBytes-len(ext)) + ext
}

// truncateBytes cuts s to at most n bytes on a rune boundary.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ContentDisposition builds a Content-Disposition value for filename. Names
// outside ASCII also get an RFC 5987 filename* parameter.
func ContentDisposition(filename string, inline bool) string {
	name := SanitizeFilename(filename)

	disposition := "attachment"
	if inline {
		disposition = "inline"
	}

	value := fmt.Sprintf("%s; filename=%q", disposition, name)
	if !isASCII(name) {
		value += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return value
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
