package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"pixvault/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	client     *minio.Client
	bucket     string
	httpClient *http.Client
}

func NewMinioStorage(cfg *config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	s := &MinioStorage{
		client: client,
		bucket: cfg.Bucket,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.FetchTimeoutSecs) * time.Second,
		},
	}

	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}

	log.Printf("MinIO 客户端初始化成功: %s/%s", cfg.Endpoint, cfg.Bucket)
	return s, nil
}

func (s *MinioStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		log.Printf("存储桶 %s 创建成功", s.bucket)
	}
	return nil
}

func (s *MinioStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	// key 由 uuid 生成, 正常不会撞名; 这里仍然拒绝覆盖已有对象
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return "", fmt.Errorf("对象已存在: %s", key)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *MinioStorage) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *MinioStorage) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *MinioStorage) SignedURL(ctx context.Context, path string, expire time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, path, expire, url.Values{})
	if err != nil {
		return "", err
	}
	return signed.String(), nil
}

func (s *MinioStorage) BulkSignedURL(ctx context.Context, paths []string, expire time.Duration) map[string]string {
	result := make(map[string]string, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		signed, err := s.SignedURL(ctx, path, expire)
		if err != nil {
			log.Printf("生成签名 URL 失败 %s: %v", path, err)
			continue
		}
		result[path] = signed
	}
	return result
}

func (s *MinioStorage) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return io.ReadAll(resp.Body)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 明确的客户端错误, 重试也不会成功
		return nil, fmt.Errorf("%w: status %d", ErrObjectNotFound, resp.StatusCode)
	default:
		return nil, fmt.Errorf("拉取对象失败: status %d", resp.StatusCode)
	}
}
