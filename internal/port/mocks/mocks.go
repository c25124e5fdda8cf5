// Package mocks holds testify mocks for the port interfaces.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/stretchr/testify/mock"
)

type AssetFetcherMock struct {
	mock.Mock
}

func NewAssetFetcherMock(t *testing.T) *AssetFetcherMock {
	m := &AssetFetcherMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AssetFetcherMock) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type DownloaderMock struct {
	mock.Mock
}

func NewDownloaderMock(t *testing.T) *DownloaderMock {
	m := &DownloaderMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *DownloaderMock) Trigger(ctx context.Context, blob domain.Blob, filename string) error {
	return m.Called(ctx, blob, filename).Error(0)
}

type BlobStoreMock struct {
	mock.Mock
}

func NewBlobStoreMock(t *testing.T) *BlobStoreMock {
	m := &BlobStoreMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BlobStoreMock) Create(data []byte, mime string) (domain.Blob, error) {
	args := m.Called(data, mime)
	blob, _ := args.Get(0).(domain.Blob)
	return blob, args.Error(1)
}

func (m *BlobStoreMock) Open(ref string) (domain.Blob, []byte, error) {
	args := m.Called(ref)
	blob, _ := args.Get(0).(domain.Blob)
	data, _ := args.Get(1).([]byte)
	return blob, data, args.Error(2)
}

func (m *BlobStoreMock) Revoke(ref string) error {
	return m.Called(ref).Error(0)
}

func (m *BlobStoreMock) RevokeAfter(ref string, d time.Duration) {
	m.Called(ref, d)
}

var (
	_ port.AssetFetcher = (*AssetFetcherMock)(nil)
	_ port.Downloader   = (*DownloaderMock)(nil)
	_ port.BlobStore    = (*BlobStoreMock)(nil)
)
