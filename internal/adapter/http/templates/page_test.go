package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, data PageData) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))
	return buf.String()
}

func TestPage_Loading(t *testing.T) {
	html := render(t, PageData{Snapshot: domain.Snapshot{
		State:  domain.EngineLoading,
		Status: domain.StatusLoading,
	}})

	assert.Contains(t, html, "<h1>FFmpeg WASM POC</h1>")
	assert.Contains(t, html, "Loading ffmpeg-core.js...")
	assert.Contains(t, html, LoadingHint)
	assert.NotContains(t, html, `type="file"`)
	assert.NotContains(t, html, "data-action")
}

func TestPage_ReadyWithoutInput(t *testing.T) {
	html := render(t, PageData{
		CSRFToken: "tok",
		Snapshot:  domain.Snapshot{State: domain.EngineReady, Ready: true, Status: domain.StatusLoaded},
	})

	assert.Contains(t, html, `type="file"`)
	assert.Contains(t, html, `name="csrf_token" value="tok"`)
	assert.Contains(t, html, "FFmpeg loaded")
	assert.NotContains(t, html, "data-action")
	assert.NotContains(t, html, LoadingHint)
}

func TestPage_ReadyWithInput(t *testing.T) {
	html := render(t, PageData{
		PreviewTag: "video",
		Snapshot: domain.Snapshot{
			State:     domain.EngineReady,
			Ready:     true,
			Status:    "Audio extracted!",
			InputName: `<clip>.mp4`,
			InputSize: 2048,
			Logs: []domain.LogLine{
				{Seq: 1, Message: "Input #0, mov,mp4"},
				{Seq: 2, Message: "<b>not markup</b>"},
			},
		},
	})

	assert.Contains(t, html, `<video controls width="250" src="/input/preview"></video>`)
	assert.Contains(t, html, `data-action="extract"`)
	assert.Contains(t, html, `data-action="compress"`)
	assert.Contains(t, html, "Extract Audio (MP3)")
	assert.Contains(t, html, "Compress Audio (64k)")
	assert.Contains(t, html, "&lt;clip&gt;.mp4")
	assert.Contains(t, html, "(2.0 KB)")
	assert.Contains(t, html, "Input #0, mov,mp4\n&lt;b&gt;not markup&lt;/b&gt;")
	assert.Contains(t, html, `data-seq="2"`)
	assert.NotContains(t, html, " disabled")
}

func TestToolBox_BusyDisablesButtons(t *testing.T) {
	var buf bytes.Buffer
	err := ToolBox(PageData{Snapshot: domain.Snapshot{
		Ready: true, Busy: true, InputName: "a.mp4", Status: "Extracting audio...",
	}}).Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(" disabled>")))
}

func TestErrorInline_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorInline("<x>").Render(context.Background(), &buf))
	assert.Equal(t, `<p class="error">&lt;x&gt;</p>`, buf.String())
}

func TestToolBox_PreviewElement(t *testing.T) {
	tests := []struct {
		name       string
		previewTag string
		want       string
		absent     []string
	}{
		{name: "video", previewTag: "video", want: `<video controls width="250" src="/input/preview"></video>`, absent: []string{"<audio"}},
		{name: "audio", previewTag: "audio", want: `<audio controls src="/input/preview"></audio>`, absent: []string{"<video"}},
		{name: "none", previewTag: "", absent: []string{"<video", "<audio"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := ToolBox(PageData{
				PreviewTag: tt.previewTag,
				Snapshot:   domain.Snapshot{Ready: true, InputName: "clip.m4a", Status: domain.StatusLoaded},
			}).Render(context.Background(), &buf)
			require.NoError(t, err)

			html := buf.String()
			if tt.want != "" {
				assert.Contains(t, html, tt.want)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, html, a)
			}
			assert.Contains(t, html, `<span class="name">clip.m4a</span>`)
		})
	}
}

func TestPage_EscapesCSRFTokenAttribute(t *testing.T) {
	html := render(t, PageData{CSRFToken: `a"b`, Snapshot: domain.Snapshot{Status: domain.StatusLoading}})
	assert.Contains(t, html, `<meta name="csrf-token" content="a&#34;b">`)
}
