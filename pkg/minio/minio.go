package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"contract-lifecycle/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("minio.client", fx.Provide(registerClient, NewStorage))

func registerClient(c *config.Config) (*minio.Client, error) {
	client, err := minio.New(c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Minio.AccessKey, c.Minio.SecretKey, ""),
		Secure: c.Minio.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, c.Minio.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", c.Minio.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, c.Minio.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", c.Minio.BucketName, err)
		}
	}
	zap.L().Info("MinIO client initialized", zap.String("endpoint", c.Minio.Endpoint), zap.String("bucket", c.Minio.BucketName))
	return client, nil
}

// ObjectStore is the subset of the minio client used for documents.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Storage writes documents into one bucket.
type Storage struct {
	client ObjectStore
	bucket string
}

func NewStorage(client *minio.Client, c *config.Config) *Storage {
	return &Storage{client: client, bucket: c.Minio.BucketName}
}

// NewStorageWith builds a Storage over any ObjectPutter.
func NewStorageWith(client ObjectStore, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket}
}

// Put uploads r under key and returns the object path "bucket/key".
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.bucket + "/" + key, nil
}

// Remove deletes an object by the path Put returned.
func (s *Storage) Remove(ctx context.Context, objectPath string) error {
	key, ok := strings.CutPrefix(objectPath, s.bucket+"/")
	if !ok {
		return fmt.Errorf("object %s is not in bucket %s", objectPath, s.bucket)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
