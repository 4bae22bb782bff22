package artifact

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioConfig S3 兼容对象存储配置
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// MinioStore 把对象写到 S3 兼容存储
type MinioStore struct {
	mc     *minio.Client
	bucket string
	region string
	prefix string
	logger *zap.Logger
}

// NewMinioStore 创建对象存储客户端，不发起网络请求
func NewMinioStore(cfg MinioConfig, logger *zap.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "visionboard"
	}

	return &MinioStore{
		mc:     mc,
		bucket: bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With(zap.String("component", "minio_blob_store")),
	}, nil
}

// Bucket 目标 bucket
func (s *MinioStore) Bucket() string { return s.bucket }

func (s *MinioStore) Kind() string { return "minio" }

// EnsureBucket 确保 bucket 存在
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Put 上传对象
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	objectKey := s.objectKey(key)
	_, err := s.mc.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	s.logger.Debug("object uploaded", zap.String("key", objectKey), zap.Int("bytes", len(data)))
	return s.locator(objectKey), nil
}

// Ping 检查 bucket 可访问
func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

func (s *MinioStore) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *MinioStore) locator(objectKey string) string {
	return "s3://" + s.bucket + "/" + objectKey
}
