// Package miniostorage provides structure to put watermarked results into a minio bucket
package miniostorage

import (
	"context"
	"errors"
	"io"
	"log"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultBucket = "watermarked"

type Config struct {
	Endpoint string
	User     string
	Pass     string
	Bucket   string
	Prefix   string // напр. папка прогона внутри бакета
}

type MinioResultStorage struct {
	bucket string
	prefix string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, cfg Config) (*MinioResultStorage, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.User, cfg.Pass, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, bucket); err != nil {
		log.Println("Failed to create bucket in MinIO:", err)
		return nil, err
	}

	return &MinioResultStorage{bucket: bucket, prefix: cfg.Prefix, client: strg}, nil
}

// Put uploads r under the prefixed key and returns "bucket/key".
func (s *MinioResultStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("nil reader passed to storage.Put")
	}

	objKey := ObjectKey(s.prefix, key)
	if _, err := s.client.PutObject(ctx, s.bucket, objKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", err
	}

	return s.bucket + "/" + objKey, nil
}

// ObjectKey joins prefix and key with forward slashes whatever the OS is
func ObjectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
