package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSConfig configures the Google Cloud Storage report store.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// GCSStorage keeps rendered reports and partner packets in a GCS bucket.
// Credentials come from Application Default Credentials.
type GCSStorage struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs storage requires a bucket")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStorage) object(key string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectKey(s.prefix, key))
}

// Put stores a report or packet document with its kind recorded in the
// object metadata.
func (s *GCSStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.object(key).NewWriter(ctx)
	w.ContentType = contentTypeFor(key, contentType)
	w.Metadata = objectMetadata(key)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

// Get loads a stored document. A missing object yields an error wrapping
// ErrNotFound.
func (s *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
