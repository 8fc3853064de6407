package minio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type objectStoreMock struct {
	putFn    func(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	removeFn func(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

func (m *objectStoreMock) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.putFn(ctx, bucket, object, r, size, opts)
}

func (m *objectStoreMock) RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error {
	return m.removeFn(ctx, bucket, object, opts)
}

func TestStoragePut(t *testing.T) {
	var gotBucket, gotObject, gotType string
	storage := NewStorageWith(&objectStoreMock{
		putFn: func(_ context.Context, bucket, object string, _ io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
			gotBucket, gotObject, gotType = bucket, object, opts.ContentType
			return minio.UploadInfo{}, nil
		},
	}, "contracts")

	path, err := storage.Put(context.Background(), "t1/c1/msa.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "contracts/t1/c1/msa.pdf", path)
	require.Equal(t, "contracts", gotBucket)
	require.Equal(t, "t1/c1/msa.pdf", gotObject)
	require.Equal(t, "application/pdf", gotType)
}

func TestStoragePutError(t *testing.T) {
	storage := NewStorageWith(&objectStoreMock{
		putFn: func(context.Context, string, string, io.Reader, int64, minio.PutObjectOptions) (minio.UploadInfo, error) {
			return minio.UploadInfo{}, errors.New("denied")
		},
	}, "contracts")

	_, err := storage.Put(context.Background(), "k", strings.NewReader(""), 0, "")
	require.ErrorContains(t, err, "denied")
}

func TestStorageRemove(t *testing.T) {
	var gotBucket, gotObject string
	storage := NewStorageWith(&objectStoreMock{
		removeFn: func(_ context.Context, bucket, object string, _ minio.RemoveObjectOptions) error {
			gotBucket, gotObject = bucket, object
			return nil
		},
	}, "contracts")

	require.NoError(t, storage.Remove(context.Background(), "contracts/t1/c1/msa.pdf"))
	require.Equal(t, "contracts", gotBucket)
	require.Equal(t, "t1/c1/msa.pdf", gotObject)

	require.Error(t, storage.Remove(context.Background(), "other/t1/c1/msa.pdf"))
}
