package local

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settleDelay = 50 * time.Millisecond

func writeAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CoreScript), []byte("var createFFmpegCore;"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CoreWasm), []byte("\x00asm\x01\x00\x00\x00"), 0600))
	return dir
}

func TestServer_ContentTypes(t *testing.T) {
	s := NewServer(writeAssets(t))

	tests := []struct {
		path      string
		wantCode  int
		wantCType string
	}{
		{path: "/ffmpeg/ffmpeg-core.js", wantCode: http.StatusOK, wantCType: "text/javascript"},
		{path: "/ffmpeg/ffmpeg-core.wasm", wantCode: http.StatusOK, wantCType: "application/wasm"},
		{path: "/ffmpeg/other.txt", wantCode: http.StatusNotFound},
		{path: "/ffmpeg/../secret", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCType != "" {
				assert.Equal(t, tt.wantCType, rec.Header().Get("Content-Type"))
				assert.NotEmpty(t, rec.Header().Get("ETag"))
			}
		})
	}
}

func TestServer_ConditionalGet(t *testing.T) {
	s := NewServer(writeAssets(t))

	first := httptest.NewRecorder()
	s.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ffmpeg/ffmpeg-core.wasm", nil))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/ffmpeg/ffmpeg-core.wasm", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	s.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
}

func TestServer_WatchInvalidatesETag(t *testing.T) {
	dir := writeAssets(t)
	s := NewServer(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	first := httptest.NewRecorder()
	s.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ffmpeg/ffmpeg-core.js", nil))
	before := first.Header().Get("ETag")

	require.NoError(t, os.WriteFile(filepath.Join(dir, CoreScript), []byte("var createFFmpegCore = 2;"), 0600))

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ffmpeg/ffmpeg-core.js", nil))
		return rec.Header().Get("ETag") != before
	}, 2*time.Second, settleDelay)
}

func TestServer_Check(t *testing.T) {
	assert.NoError(t, NewServer(writeAssets(t)).Check())

	err := NewServer(t.TempDir()).Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg-core")
}
