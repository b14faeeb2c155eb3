// Package objectstore keeps uploaded product images in an S3 compatible bucket.
package objectstore

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const imagePrefix = "images/"

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ImageStore writes images into a single bucket.
type ImageStore struct {
	client *minio.Client
	bucket string
}

// NewImageStore connects to the object store and creates the bucket when it
// does not exist yet.
func NewImageStore(ctx context.Context, cfg Config) (*ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object store client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "failed to create bucket %s", cfg.Bucket)
		}
		log.WithField("bucket", cfg.Bucket).Info("Created image bucket")
	}

	return &ImageStore{client: client, bucket: cfg.Bucket}, nil
}

// PutImage uploads an image and returns the path it is served from.
func (s *ImageStore) PutImage(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	key := objectKey(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}
	return publicPath(s.bucket, key), nil
}

// Ping reports whether the bucket is reachable.
func (s *ImageStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return errors.Wrap(err, "object store unreachable")
	}
	return nil
}

func objectKey(name string) string {
	return imagePrefix + strings.TrimLeft(name, "/")
}

func publicPath(bucket, key string) string {
	return "/" + bucket + "/" + key
}
