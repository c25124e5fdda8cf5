// Package local serves the engine's core assets from a directory on disk.
package local

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/ffpoc/internal/infrastructure/digest"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/fsnotify/fsnotify"
)

const (
	CoreScript = "ffmpeg-core.js"
	CoreWasm   = "ffmpeg-core.wasm"
)

var assetTypes = map[string]string{
	CoreScript: "text/javascript",
	CoreWasm:   "application/wasm",
}

// ContentType returns the declared type for an asset name.
func ContentType(name string) (string, bool) {
	t, ok := assetTypes[name]
	return t, ok
}

// Server serves the two core assets with content-digest ETags.
type Server struct {
	dir string

	mu    sync.RWMutex
	etags map[string]string
}

func NewServer(dir string) *Server {
	return &Server{
		dir:   dir,
		etags: make(map[string]string),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Base(r.URL.Path)
	ctype, ok := ContentType(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(s.dir, name)
	f, err := os.Open(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	etag, err := s.etag(name, f)
	if err != nil {
		logger.Error.Printf("asset digest %s: %v", name, err)
		http.Error(w, "Asset unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) etag(name string, f *os.File) (string, error) {
	s.mu.RLock()
	etag, ok := s.etags[name]
	s.mu.RUnlock()
	if ok {
		return etag, nil
	}

	sum, err := digest.Reader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}

	etag = fmt.Sprintf("%q", digest.Short(sum))
	s.mu.Lock()
	s.etags[name] = etag
	s.mu.Unlock()
	return etag, nil
}

func (s *Server) invalidate(name string) {
	s.mu.Lock()
	delete(s.etags, name)
	s.mu.Unlock()
}

// Watch drops cached ETags when asset files change until ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer w.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name := filepath.Base(ev.Name)
				if _, known := assetTypes[name]; !known {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.invalidate(name)
					logger.Info.Printf("asset %s changed (%s)", name, strings.ToLower(ev.Op.String()))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn.Printf("asset watcher: %v", err)
			}
		}
	}()
	return nil
}

// Check reports missing assets, for startup diagnostics.
func (s *Server) Check() error {
	var missing []string
	for name := range assetTypes {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing engine assets in %s: %s", s.dir, strings.Join(missing, ", "))
	}
	return nil
}
