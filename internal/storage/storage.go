package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/local/archivepdf/internal/apperr"
)

// Destination is a parsed upload target such as s3://bucket/some/prefix.
type Destination struct {
	Scheme string // "s3" or "gs"
	Bucket string
	Prefix string
}

// ParseDestination splits an s3:// or gs:// URL into bucket and key prefix.
func ParseDestination(raw string) (Destination, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || (scheme != "s3" && scheme != "gs") {
		return Destination{}, apperr.Configf("upload", "%q must start with s3:// or gs://", raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Destination{}, apperr.Configf("upload", "%q has no bucket", raw)
	}
	return Destination{Scheme: scheme, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Key returns the object key for a file name under the destination prefix.
func (d Destination) Key(name string) string {
	if d.Prefix == "" {
		return name
	}
	return path.Join(d.Prefix, name)
}

// URL renders the object location for name.
func (d Destination) URL(name string) string {
	return fmt.Sprintf("%s://%s/%s", d.Scheme, d.Bucket, d.Key(name))
}

// Object describes a file to upload.
type Object struct {
	LocalPath string
	Name      string
	Metadata  map[string]string
}

// Uploader copies finished PDFs to remote storage.
type Uploader interface {
	// Check confirms the bucket is reachable before any document is written.
	Check(ctx context.Context) error
	Upload(ctx context.Context, obj Object) (string, error)
	Close() error
}

// Open returns an Uploader for raw (s3:// or gs://).
func Open(ctx context.Context, raw string) (Uploader, error) {
	dest, err := ParseDestination(raw)
	if err != nil {
		return nil, err
	}
	switch dest.Scheme {
	case "s3":
		return NewS3Uploader(ctx, dest)
	default:
		return NewGCSUploader(ctx, dest)
	}
}
