package memory

import (
	"sync"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/digest"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/google/uuid"
)

const refPrefix = "blob:"

type entry struct {
	blob  domain.Blob
	data  []byte
	timer *time.Timer
}

// Store keeps blobs in process memory until they are revoked.
type Store struct {
	mu    sync.Mutex
	blobs map[string]*entry
}

func NewStore() *Store {
	return &Store{blobs: make(map[string]*entry)}
}

func (s *Store) Create(data []byte, mime string) (domain.Blob, error) {
	buf := make([]byte, len(data))
	copy(buf, data)

	blob := domain.Blob{
		Ref:    refPrefix + uuid.NewString(),
		MIME:   mime,
		Size:   int64(len(buf)),
		Digest: digest.Sum(buf),
	}

	s.mu.Lock()
	s.blobs[blob.Ref] = &entry{blob: blob, data: buf}
	s.mu.Unlock()

	return blob, nil
}

func (s *Store) Open(ref string) (domain.Blob, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.blobs[ref]
	if !ok {
		return domain.Blob{}, nil, domain.ErrBlobNotFound
	}
	return e.blob, e.data, nil
}

func (s *Store) Revoke(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.blobs[ref]
	if !ok {
		return domain.ErrBlobNotFound
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.blobs, ref)
	return nil
}

// RevokeAfter schedules ref for release after d. A later call replaces the
// earlier schedule.
func (s *Store) RevokeAfter(ref string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.blobs[ref]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(d, func() { _ = s.Revoke(ref) })
}

// Len reports how many blobs are live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var _ port.BlobStore = (*Store)(nil)
