package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Uploader uploads to an S3 bucket using the multipart upload manager, so large
// documents are streamed in parts.
type S3Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
	dest     Destination
}

// NewS3Uploader creates an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, dest Destination) (*S3Uploader, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Uploader{client: cli, uploader: manager.NewUploader(cli), dest: dest}, nil
}

// Check issues a HeadBucket request.
func (s *S3Uploader) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.dest.Bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s: %w", s.dest.Bucket, err)
	}
	return nil
}

// Upload streams obj to s3://bucket/prefix/name.
func (s *S3Uploader) Upload(ctx context.Context, obj Object) (string, error) {
	f, err := os.Open(obj.LocalPath)
	if err != nil {
		return "", fmt.Errorf("could not open local file %s: %w", obj.LocalPath, err)
	}
	defer f.Close()

	key := s.dest.Key(obj.Name)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.dest.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
		Metadata:    obj.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("key", key).Str("location", out.Location).Msg("uploaded PDF to S3")
	return s.dest.URL(obj.Name), nil
}

func (s *S3Uploader) Close() error { return nil }
