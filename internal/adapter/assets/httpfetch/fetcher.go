package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/ffpoc/internal/port"
)

// maxAssetBytes caps a single asset download; the wasm core is ~30 MiB.
const maxAssetBytes = 256 << 20

type Fetcher struct {
	client *http.Client
}

type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithFileRoot lets file:// URLs resolve against dir, so headless runs can
// bootstrap from a local asset directory.
func WithFileRoot(dir string) Option {
	return func(f *Fetcher) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.RegisterProtocol("file", http.NewFileTransport(http.Dir(dir)))
		f.client = &http.Client{Transport: t, Timeout: f.client.Timeout}
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("GET %s: asset exceeds %d bytes", url, maxAssetBytes)
	}
	return data, nil
}

var _ port.AssetFetcher = (*Fetcher)(nil)
