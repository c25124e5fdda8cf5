package port

import (
	"time"

	"github.com/bnema/ffpoc/internal/domain"
)

// BlobStore hands out locally-dereferenceable references to byte payloads.
type BlobStore interface {
	Create(data []byte, mime string) (domain.Blob, error)
	Open(ref string) (domain.Blob, []byte, error)
	Revoke(ref string) error
	RevokeAfter(ref string, d time.Duration)
}
