package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound 表示对象不存在, 或通过签名 URL 拉取时收到 4xx 响应
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStorage 对象存储网关。核心流程只依赖这组能力,
// 具体实现 (MinIO) 不持有除对象本身以外的权威状态。
type ObjectStorage interface {
	// Put 写入新对象, 已存在同名 key 时返回错误
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete 对不存在的 key 调用也安全
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, expire time.Duration) (string, error)
	// BulkSignedURL 跳过无法解析的 path, 不会让整个调用失败
	BulkSignedURL(ctx context.Context, paths []string, expire time.Duration) map[string]string
	// FetchBytes 通过签名 URL 拉取字节, Worker 用它避免反推存储路径
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
