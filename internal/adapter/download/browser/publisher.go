// Package browser offers produced blobs to the page: it announces a download
// over the session event stream and serves the blob exactly once.
package browser

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/bnema/ffpoc/internal/service"
)

// PathPrefix is the route the page fetches announced downloads from.
const PathPrefix = "/downloads/"

var ErrNoSubscribers = errors.New("no page received the download")

type Publisher struct {
	blobs  port.BlobStore
	events service.EventPublisher
	ttl    time.Duration

	mu      sync.Mutex
	pending map[string]string
}

func NewPublisher(blobs port.BlobStore, events service.EventPublisher, ttl time.Duration) *Publisher {
	return &Publisher{
		blobs:   blobs,
		events:  events,
		ttl:     ttl,
		pending: make(map[string]string),
	}
}

// URL returns the path a pending blob is served from.
func URL(ref string) string {
	return PathPrefix + url.PathEscape(ref)
}

// Trigger announces blob to every connected page. The download counts as
// fired only if at least one page received the announcement.
func (p *Publisher) Trigger(_ context.Context, blob domain.Blob, filename string) error {
	// Registered first: a page may fetch as soon as the event lands.
	p.mu.Lock()
	p.pending[blob.Ref] = filename
	p.mu.Unlock()

	delivered := p.events.Publish(service.SessionTopic, service.Event{
		Type:     service.EventDownload,
		URL:      URL(blob.Ref),
		Filename: filename,
	})
	if delivered == 0 {
		p.forget(blob.Ref)
		return ErrNoSubscribers
	}

	p.blobs.RevokeAfter(blob.Ref, p.ttl)
	time.AfterFunc(p.ttl, func() { p.forget(blob.Ref) })

	logger.Info.Printf("download offered to %d page(s): %s as %q (%s, expires in %s)",
		delivered, blob.Ref, filename, domain.FormatSize(blob.Size), p.ttl)
	return nil
}

// Claim hands out a pending blob once and releases it. Later claims for the
// same ref, or claims after the TTL, return ErrBlobNotFound.
func (p *Publisher) Claim(ref string) (domain.Blob, []byte, string, error) {
	p.mu.Lock()
	filename, ok := p.pending[ref]
	delete(p.pending, ref)
	p.mu.Unlock()
	if !ok {
		return domain.Blob{}, nil, "", domain.ErrBlobNotFound
	}

	blob, data, err := p.blobs.Open(ref)
	if err != nil {
		return domain.Blob{}, nil, "", err
	}
	if err := p.blobs.Revoke(ref); err != nil {
		logger.Warn.Printf("revoke %s: %v", ref, err)
	}
	return blob, data, filename, nil
}

// Pending reports how many offered downloads have not been claimed yet.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Publisher) forget(ref string) {
	p.mu.Lock()
	delete(p.pending, ref)
	p.mu.Unlock()
}

var _ port.Downloader = (*Publisher)(nil)
