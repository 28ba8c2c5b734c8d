package photostore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/seadrift/dive-insights/internal/domain/export"
)

// MinioStore signs short-lived download URLs for dive photos kept in an
// S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	logger *slog.Logger
}

// NewMinioStore constructs the photo store adapter.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, region string, ttl time.Duration, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := !strings.HasPrefix(strings.ToLower(endpoint), "http://")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init photo store client: %w", err)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MinioStore{
		client: client,
		bucket: bucket,
		ttl:    ttl,
		logger: logger.With("component", "photostore.minio"),
	}, nil
}

// SignedURL produces a presigned GET URL for one photo object.
func (s *MinioStore) SignedURL(ctx context.Context, key string) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo %q: %w", key, err)
	}
	return signed.String(), nil
}

func sanitizeEndpoint(endpoint string) string {
	cleaned := strings.TrimSpace(endpoint)
	cleaned = strings.TrimPrefix(cleaned, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")
	return strings.TrimRight(cleaned, "/")
}

var _ export.PhotoSigner = (*MinioStore)(nil)
