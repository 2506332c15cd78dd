package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
)

// GCSUploader uploads to a Google Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	dest   Destination
}

// NewGCSUploader creates a client from application default credentials.
func NewGCSUploader(ctx context.Context, dest Destination) (*GCSUploader, error) {
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSUploader{client: c, dest: dest}, nil
}

// Check reads the bucket attributes.
func (g *GCSUploader) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := g.client.Bucket(g.dest.Bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", g.dest.Bucket, err)
	}
	return nil
}

// Upload copies obj to gs://bucket/prefix/name.
func (g *GCSUploader) Upload(ctx context.Context, obj Object) (string, error) {
	f, err := os.Open(obj.LocalPath)
	if err != nil {
		return "", fmt.Errorf("could not open local file %s: %w", obj.LocalPath, err)
	}
	defer f.Close()

	key := g.dest.Key(obj.Name)
	w := g.client.Bucket(g.dest.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = obj.Metadata
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	// the object is only committed by Close
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS object: %w", err)
	}
	log.Info().Str("bucket", g.dest.Bucket).Str("object", key).Msg("uploaded PDF to GCS")
	return g.dest.URL(obj.Name), nil
}

func (g *GCSUploader) Close() error { return g.client.Close() }
