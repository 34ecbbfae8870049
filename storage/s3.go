package storage

import (
	apperrors "arstate-chat/errors"

	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// S3Store uploads images to a bucket and returns public URLs built
// from publicBase (e.g. a CDN or the bucket website endpoint).
type S3Store struct {
	uploader   *manager.Uploader
	bucket     string
	publicBase string
	log        *slog.Logger
}

func NewS3Store(ctx context.Context, bucket, publicBase string, log *slog.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		publicBase: strings.TrimSuffix(publicBase, "/"),
		log:        log,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, path string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: refusing non-image payload %q", apperrors.ErrUploadFailed, mt.String())
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	ref := s.publicBase + "/" + path
	s.log.Debug("uploaded to s3", "bucket", s.bucket, "key", path, "content_type", mt.String())
	return ref, nil
}
