// Package storage uploads published funnel pages to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/boron/funnel-service/pkg/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultURLExpiry = 24 * time.Hour

// objectStore is the part of *minio.Client the publisher needs.
type objectStore interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expires time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// MinIOStorage publishes rendered pages as objects named
// <prefix>/<funnel id>/index.html.
type MinIOStorage struct {
	client  objectStore
	bucket  string
	prefix  string
	baseURL string
	expiry  time.Duration
}

// NewMinIOStorage creates a new MinIO client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, cfg.Bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return newStorage(mc, cfg), nil
}

func newStorage(client objectStore, cfg *MinIOConfig) *MinIOStorage {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	return &MinIOStorage{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		expiry:  expiry,
	}
}

// PageKey returns the object key of a funnel's published page.
func (s *MinIOStorage) PageKey(funnelID string) string {
	return path.Join(s.prefix, funnelID, "index.html")
}

// PublishPage uploads page and returns a URL for it.
func (s *MinIOStorage) PublishPage(ctx context.Context, funnelID string, page []byte) (string, error) {
	key := s.PageKey(funnelID)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(page), int64(len(page)), minio.PutObjectOptions{
		ContentType:  "text/html; charset=utf-8",
		CacheControl: "no-cache",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.PagesPublished.Inc()
	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// UnpublishPage removes a funnel's page. Removing a missing page is not an error.
func (s *MinIOStorage) UnpublishPage(ctx context.Context, funnelID string) error {
	return s.client.RemoveObject(ctx, s.bucket, s.PageKey(funnelID), minio.RemoveObjectOptions{})
}
