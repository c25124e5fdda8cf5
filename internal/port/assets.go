package port

import "context"

// AssetFetcher retrieves a remote asset.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
