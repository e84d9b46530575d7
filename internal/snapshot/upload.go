package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dshills/fitscat/internal/config"
	"github.com/dshills/fitscat/internal/logging"
)

// ContentType is sent with uploaded snapshots
const ContentType = "application/vnd.apache.parquet"

// ErrUploadDisabled is returned when no S3 endpoint is configured
var ErrUploadDisabled = errors.New("snapshot upload not configured")

// Upload copies the snapshot at path to the configured bucket, creating the
// bucket if needed. The object key is the file's base name.
func Upload(ctx context.Context, cfg config.S3, path string) (string, error) {
	if !cfg.Enabled() {
		return "", ErrUploadDisabled
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return "", fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return "", fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}

	key := filepath.Base(path)
	info, err := client.FPutObject(ctx, cfg.Bucket, key, path, minio.PutObjectOptions{ContentType: ContentType})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	logging.Info("Uploaded %s to %s/%s (%d bytes)", path, cfg.Bucket, key, info.Size)
	return key, nil
}
