package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/quillsign/quillsign/backend/config"
)

// ObjectStorage is the object-store boundary: source documents, signature
// rasters and exported artifacts all go through it.
type ObjectStorage interface {
	UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	// CopyObject duplicates a stored object server-side, so each contract
	// can own its source document independently.
	CopyObject(ctx context.Context, srcObjectName, dstObjectName string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteObject(ctx context.Context, objectName string) error
}

type MinioService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewMinioService(cfg *config.MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (s *MinioService) UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

func (s *MinioService) CopyObject(ctx context.Context, srcObjectName, dstObjectName string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstObjectName},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcObjectName},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	return nil
}

// PresignedURL generates a presigned GET URL with the configured expiry.
func (s *MinioService) PresignedURL(ctx context.Context, objectName string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

func (s *MinioService) DeleteObject(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// DocumentObjectName builds the object name for an uploaded source document.
func DocumentObjectName(ownerUser, contractID, filename string) string {
	return fmt.Sprintf("%s/%s/source/%s", ownerUser, contractID, filename)
}

// ArtifactObjectName builds the object name for an exported merged document.
// Each export gets a fresh name so repeated exports never race on one object.
func ArtifactObjectName(ownerUser, contractID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/export/merged-%d.pdf", ownerUser, contractID, at.Unix())
}
