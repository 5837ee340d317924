package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"VibeFM/config"
	"VibeFM/logger"
)

// MinioStorage uploads transcoded audio files to an S3-compatible bucket and
// hands back publicly reachable object URLs.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	useSSL    bool
	publicURL string
}

// NewMinioStorage 初始化 MinIO 客户端 and verifies that the bucket exists,
// creating it when missing.
func NewMinioStorage(cfg *config.Config) (*MinioStorage, error) {
	logger.Info("connecting to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.MinioBucket,
		endpoint:  cfg.MinioEndpoint,
		useSSL:    cfg.MinioUseSSL,
		publicURL: strings.TrimRight(cfg.MinioPublicURL, "/"),
	}, nil
}

// Upload puts a local file into the bucket and returns its public URL.
func (s *MinioStorage) Upload(ctx context.Context, localPath, objectName, contentType string) (string, error) {
	info, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}

	logger.Info("object uploaded",
		logger.String("bucket", s.bucket),
		logger.String("object", objectName),
		logger.Int64("size", info.Size))
	return s.ObjectURL(objectName), nil
}

// ObjectURL builds the public URL for an uploaded object. MINIO_PUBLIC_URL
// overrides the endpoint-derived form for deployments behind a CDN or proxy.
func (s *MinioStorage) ObjectURL(objectName string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + objectName
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectName)
}

// Check verifies connectivity and bucket access. Used by the check subcommand.
func (s *MinioStorage) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶不存在: %s", s.bucket)
	}
	return nil
}
