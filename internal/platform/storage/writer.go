package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/storefront/seo-api/internal/services"
)

const defaultCacheControl = "public, max-age=3600"

var (
	errNoClient       = errors.New("storage: client is required")
	errInvalidBucket  = errors.New("storage: bucket name is required")
	errInvalidObject  = errors.New("storage: object name is required")
	errContentMissing = errors.New("storage: content type is required")
)

// ObjectWriter uploads generated artefacts such as sitemap.xml into a single bucket.
type ObjectWriter struct {
	client       *gcs.Client
	bucket       string
	cacheControl string
	timeout      time.Duration
}

var _ services.SitemapStore = (*ObjectWriter)(nil)

// WriterOption customises writer behaviour.
type WriterOption func(*ObjectWriter)

// WithCacheControl sets the Cache-Control metadata applied to every object.
func WithCacheControl(value string) WriterOption {
	return func(w *ObjectWriter) {
		w.cacheControl = strings.TrimSpace(value)
	}
}

// WithWriteTimeout bounds a single upload.
func WithWriteTimeout(timeout time.Duration) WriterOption {
	return func(w *ObjectWriter) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

// NewObjectWriter constructs a writer for bucket.
func NewObjectWriter(client *gcs.Client, bucket string, opts ...WriterOption) (*ObjectWriter, error) {
	if client == nil {
		return nil, errNoClient
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	w := &ObjectWriter{client: client, bucket: bucket, cacheControl: defaultCacheControl, timeout: 30 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// WriteObject uploads body in a single request, replacing any previous generation.
func (w *ObjectWriter) WriteObject(ctx context.Context, object, contentType string, body []byte) (services.StoredObject, error) {
	if w == nil || w.client == nil {
		return services.StoredObject{}, errNoClient
	}
	object = strings.Trim(strings.TrimSpace(object), "/")
	if object == "" {
		return services.StoredObject{}, errInvalidObject
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return services.StoredObject{}, errContentMissing
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	writer := w.client.Bucket(w.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = w.cacheControl
	writer.ChunkSize = 0

	if _, err := writer.Write(body); err != nil {
		_ = writer.Close()
		return services.StoredObject{}, fmt.Errorf("storage: write %s/%s: %w", w.bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return services.StoredObject{}, fmt.Errorf("storage: finalise %s/%s: %w", w.bucket, object, err)
	}

	attrs := writer.Attrs()
	stored := services.StoredObject{Bucket: w.bucket, Name: object, Size: int64(len(body))}
	if attrs != nil {
		stored.Generation = attrs.Generation
		if attrs.Size > 0 {
			stored.Size = attrs.Size
		}
	}
	return stored, nil
}

// Ping verifies the bucket is reachable; used by the readiness probe.
func (w *ObjectWriter) Ping(ctx context.Context) error {
	if w == nil || w.client == nil {
		return errNoClient
	}
	if _, err := w.client.Bucket(w.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("storage: bucket %s: %w", w.bucket, err)
	}
	return nil
}
