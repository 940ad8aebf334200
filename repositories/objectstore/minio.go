package objectstore

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gohan/vcf/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Archive keeps the raw source files in an S3-compatible bucket.
type Archive struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewArchive(cfg *models.Config, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(cfg.ObjectStore.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, ""),
		Secure: cfg.ObjectStore.UseSSL,
		Region: cfg.ObjectStore.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: cfg.ObjectStore.Bucket,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket when it doesn't exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}

	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("created bucket", zap.String("bucket", a.bucket))
	return nil
}

// Archive uploads the file under <fileId>/<filename> and returns the key.
func (a *Archive) Archive(ctx context.Context, fileId string, filePath string) (string, error) {
	key := ObjectKey(fileId, filepath.Base(filePath))

	info, err := a.client.FPutObject(ctx, a.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType(filePath),
	})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}

	a.logger.Info("archived source file",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size))
	return key, nil
}

func ObjectKey(fileId string, filename string) string {
	return path.Join(fileId, filename)
}

func contentType(filePath string) string {
	if strings.HasSuffix(filePath, ".gz") {
		return "application/gzip"
	}
	return "text/plain"
}
