// Package validation inspects user-supplied names and bytes before they are
// echoed back in headers or handed to the page.
package validation

import "net/http"

// sniffLen is how many leading bytes content detection looks at.
const sniffLen = 512

// playable lists the types the page can preview in a media element.
var playable = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/ogg":       true,
	"audio/mpeg":      true,
	"audio/ogg":       true,
	"application/ogg": true,
	"audio/wav":       true,
	"audio/wave":      true,
	"audio/flac":      true,
	"audio/aac":       true,
}

// SniffMediaType detects the content type of data from its magic bytes.
// Containers http.DetectContentType misses are recognized first.
func SniffMediaType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if mime := sniffContainer(head); mime != "" {
		return mime
	}
	return http.DetectContentType(head)
}

// Playable reports whether the page can preview mime in a media element.
func Playable(mime string) bool {
	return playable[mime]
}

// IsVideo reports whether mime is previewed with a video element rather than
// an audio one.
func IsVideo(mime string) bool {
	switch mime {
	case "video/mp4", "video/webm", "video/quicktime", "video/ogg":
		return true
	}
	return false
}

func sniffContainer(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}
	switch {
	case buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3:
		return "video/webm"
	case string(buf[:4]) == "fLaC":
		return "audio/flac"
	case string(buf[:3]) == "ID3":
		return "audio/mpeg"
	case buf[0] == 0xFF && (buf[1]&0xFE == 0xFA || buf[1]&0xFE == 0xF2):
		return "audio/mpeg"
	case buf[0] == 0xFF && buf[1]&0xF6 == 0xF0:
		return "audio/aac"
	}

	if len(buf) >= 12 && string(buf[4:8]) == "ftyp" {
		switch string(buf[8:12]) {
		case "qt  ":
			return "video/quicktime"
		case "M4A ":
			return "audio/mp4"
		default:
			return "video/mp4"
		}
	}
	return ""
}
