package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateOpen(t *testing.T) {
	s := NewStore()
	data := []byte("ID3 fake mp3")

	blob, err := s.Create(data, domain.AudioMIME)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(blob.Ref, "blob:"))
	assert.Equal(t, "audio/mp3", blob.MIME)
	assert.Equal(t, int64(len(data)), blob.Size)
	assert.NotEmpty(t, blob.Digest)

	got, payload, err := s.Open(blob.Ref)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	assert.Equal(t, data, payload)
}

func TestStore_CreateCopiesInput(t *testing.T) {
	s := NewStore()
	data := []byte("abc")
	blob, err := s.Create(data, "text/plain")
	require.NoError(t, err)

	data[0] = 'z'

	_, payload, err := s.Open(blob.Ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), payload)
}

func TestStore_UniqueRefs(t *testing.T) {
	s := NewStore()
	a, _ := s.Create([]byte("same"), "text/plain")
	b, _ := s.Create([]byte("same"), "text/plain")
	assert.NotEqual(t, a.Ref, b.Ref)
	assert.Equal(t, a.Digest, b.Digest)
}

func TestStore_Revoke(t *testing.T) {
	s := NewStore()
	blob, _ := s.Create([]byte("x"), "text/plain")

	require.NoError(t, s.Revoke(blob.Ref))
	assert.Equal(t, 0, s.Len())

	_, _, err := s.Open(blob.Ref)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.ErrorIs(t, s.Revoke(blob.Ref), domain.ErrBlobNotFound)
}

func TestStore_RevokeAfter(t *testing.T) {
	s := NewStore()
	blob, _ := s.Create([]byte("x"), "text/plain")

	s.RevokeAfter(blob.Ref, 10*time.Millisecond)
	assert.Equal(t, 1, s.Len())

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStore_RevokeCancelsTimer(t *testing.T) {
	s := NewStore()
	blob, _ := s.Create([]byte("x"), "text/plain")
	s.RevokeAfter(blob.Ref, 10*time.Millisecond)

	require.NoError(t, s.Revoke(blob.Ref))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, s.Len())
}

func TestStore_RevokeAfterUnknownRefIsNoop(t *testing.T) {
	s := NewStore()
	s.RevokeAfter("blob:missing", time.Millisecond)
	assert.Equal(t, 0, s.Len())
}
