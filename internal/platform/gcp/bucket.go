package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

// Bucket stores uploaded study files in a single GCS bucket.
type Bucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    BucketConfig
}

func NewBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate bucket config: %w", err)
	}
	var opts []option.ClientOption
	switch cfg.Mode {
	case BucketModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	default:
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	cl, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	b := &Bucket{log: log.With("service", "GCSBucket"), client: cl, cfg: cfg}
	b.log.Info("Object storage initialized",
		"provider", "gcs",
		"mode", cfg.Mode,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
	)
	return b, nil
}

// Put writes data under key and returns the object's public URL.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return b.cfg.PublicURL(key), nil
}

// Get reads the object stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	r, err := b.client.Bucket(b.cfg.Bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %q: %w", key, err)
	}
	return data, nil
}

func (b *Bucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

// PublicURL prefers the CDN domain, then the emulator media endpoint, then an
// explicit public base, then the storage.googleapis.com default.
func (c BucketConfig) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if c.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.CDNDomain, key)
	}
	if c.Mode == BucketModeGCSEmulator && c.EmulatorHost != "" {
		base := c.EmulatorHost
		if c.PublicBaseURL != "" {
			base = c.PublicBaseURL
		}
		return fmt.Sprintf("%s/download/storage/v1/b/%s/o/%s?alt=media",
			strings.TrimRight(base, "/"), url.PathEscape(c.Bucket), url.PathEscape(key))
	}
	if c.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", c.PublicBaseURL, c.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.Bucket, key)
}
