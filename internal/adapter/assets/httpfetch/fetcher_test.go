package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ffmpeg/ffmpeg-core.js":
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = w.Write([]byte("var createFFmpegCore;"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()

	data, err := f.Fetch(context.Background(), srv.URL+"/ffmpeg/ffmpeg-core.js")
	require.NoError(t, err)
	assert.Equal(t, "var createFFmpegCore;", string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/ffmpeg/ffmpeg-core.wasm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetcher_FileRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffmpeg-core.wasm"), []byte("\x00asm\x01\x00\x00\x00"), 0600))

	f := NewFetcher(WithFileRoot(dir))

	data, err := f.Fetch(context.Background(), "file:///ffmpeg-core.wasm")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00asm\x01\x00\x00\x00"), data)

	_, err = f.Fetch(context.Background(), "file:///ffmpeg-core.js")
	assert.Error(t, err)
}

func TestFetcher_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), url+"/ffmpeg/ffmpeg-core.js")
	assert.Error(t, err)
}

func TestFetcher_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher().Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
