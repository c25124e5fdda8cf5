package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"download name", "extracted_audio.mp3", "extracted_audio.mp3"},
		{"spaces and dots", "my clip.final.mp4", "my clip.final.mp4"},
		{"unicode", "vidéo 動画 🎬.mp4", "vidéo 動画 🎬.mp4"},
		{"double quote", `say "hi".mp4`, "say _hi_.mp4"},
		{"backslash", `a\b.mp4`, "a_b.mp4"},
		{"slash traversal", "../../etc/passwd", ".._.._etc_passwd"},
		{"colon", "C:clip.mp4", "C_clip.mp4"},
		{"crlf injection", "a\r\nSet-Cookie: x.mp4", "a__Set-Cookie_ x.mp4"},
		{"nul and del", "a\x00b\x7f.mp4", "a_b_.mp4"},
		{"empty", "", "file"},
		{"whitespace", "   ", "file"},
		{"only separators", "///", "file"},
		{"dot", ".", "file"},
		{"dot dot", "..", "file"},
		{"surrounding space", "  clip.mp4  ", "clip.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Length(t *testing.T) {
	long := strings.Repeat("a", 300) + ".mp3"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxFilenameBytes)
	assert.True(t, strings.HasSuffix(got, ".mp3"))

	noExt := strings.Repeat("b", 300)
	assert.Len(t, SanitizeFilename(noExt), maxFilenameBytes)

	// Multi-byte runes are never split.
	wide := strings.Repeat("é", 200) + ".mp3"
	got = SanitizeFilename(wide)
	assert.LessOrEqual(t, len(got), maxFilenameBytes)
	assert.True(t, strings.HasSuffix(got, ".mp3"))
	assert.True(t, strings.HasPrefix(got, "éé"))
	assert.Equal(t, 0, (len(got)-len(".mp3"))%2)
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		inline   bool
		want     string
	}{
		{"attachment", "compressed.mp3", false, `attachment; filename="compressed.mp3"`},
		{"inline preview", "clip.mp4", true, `inline; filename="clip.mp4"`},
		{"quotes removed", `bad"name.mp3`, false, `attachment; filename="bad_name.mp3"`},
		{"header injection", "a\r\nb.mp3", false, `attachment; filename="a__b.mp3"`},
		{"empty", "", false, `attachment; filename="file"`},
		{"unicode", "vidéo.mp4", true, `inline; filename="vidéo.mp4"; filename*=UTF-8''vid%C3%A9o.mp4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentDisposition(tt.filename, tt.inline)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n")
			assert.NotContains(t, got, "\r")
		})
	}
}
