// Package digest computes the content digests used for ETags, artifact
// records and engine asset logging.
package digest

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Sum returns the hex BLAKE2b-256 digest of data.
func Sum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader returns the hex BLAKE2b-256 digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Short returns the first 12 hex characters of a digest for log lines.
func Short(d string) string {
	if len(d) <= 12 {
		return d
	}
	return d[:12]
}
