package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"workshopplus_backend/internal/config"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 附件存储后端。key 由本层生成，调用方只保存返回的 key/url
type StorageProvider interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// NewStorageProvider 按配置选择本地磁盘或 minio
func NewStorageProvider(cfg *config.StorageConfig) (StorageProvider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return newMinioStorage(cfg)
	case util.StorageLocal, "":
		return &LocalStorage{BasePath: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// AttachmentKey 附件对象键：workshops/<id>/<uuid><ext>
func AttachmentKey(workshopID uint, fileName string) string {
	return fmt.Sprintf("workshops/%d/%s%s", workshopID, uuid.New().String(), filepath.Ext(fileName))
}

type LocalStorage struct {
	BasePath string
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	path := filepath.Join(s.BasePath, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", err
	}
	return "/uploads/" + key, nil
}

func (s *LocalStorage) Remove(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(s.BasePath, key))
}

type MinioStorage struct {
	Client *minio.Client
	Bucket string
}

func newMinioStorage(cfg *config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		logger.Log.Info("minio bucket created", zap.String("bucket", cfg.MinioBucket))
	}
	return &MinioStorage{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (s *MinioStorage) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.Client.PutObject(ctx, s.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.Client.EndpointURL().String(), s.Bucket, key), nil
}

func (s *MinioStorage) Remove(ctx context.Context, key string) error {
	return s.Client.RemoveObject(ctx, s.Bucket, key, minio.RemoveObjectOptions{})
}
