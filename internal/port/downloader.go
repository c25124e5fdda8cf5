package port

import (
	"context"

	"github.com/bnema/ffpoc/internal/domain"
)

// Downloader offers a blob to the user under filename.
type Downloader interface {
	Trigger(ctx context.Context, blob domain.Blob, filename string) error
}
