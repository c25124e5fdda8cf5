// Package filesystem delivers downloads as files in a local directory.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/ffpoc/internal/adapter/http/validation"
	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
)

// maxDuplicates bounds the " (n)" suffix search for a free name.
const maxDuplicates = 1000

// Writer saves each triggered blob under its filename in dir and releases it.
// An existing file is never overwritten; a numbered name is picked instead.
type Writer struct {
	dir   string
	blobs port.BlobStore

	mu    sync.Mutex
	paths []string
}

func NewWriter(dir string, blobs port.BlobStore) *Writer {
	return &Writer{dir: dir, blobs: blobs}
}

func (w *Writer) Trigger(ctx context.Context, blob domain.Blob, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, data, err := w.blobs.Open(blob.Ref)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.blobs.Revoke(blob.Ref); err != nil {
			logger.Warn.Printf("revoke %s: %v", blob.Ref, err)
		}
	}()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dest, err := w.reserve(validation.SanitizeFilename(filename))
	if err != nil {
		return err
	}

	tmp := dest + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(dest)
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(dest)
		return fmt.Errorf("finalize %s: %w", filepath.Base(dest), err)
	}

	w.paths = append(w.paths, dest)
	logger.Info.Printf("download saved: %s (%s)", dest, domain.FormatSize(blob.Size))
	return nil
}

// reserve creates an empty placeholder at the first free name so concurrent
// writers cannot pick the same one.
func (w *Writer) reserve(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxDuplicates; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(w.dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_ = f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("reserve %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, w.dir)
}

// Paths lists every file written so far, in order.
func (w *Writer) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

var _ port.Downloader = (*Writer)(nil)
