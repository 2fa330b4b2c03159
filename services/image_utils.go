package services

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// 注册 webp 解码器, imaging 本身只认 jpeg/png/gif 等
	_ "golang.org/x/image/webp"

	"pixvault/config"
)

func isMimeTypeAllowed(mimeType string) bool {
	for _, allowed := range config.AppConfig.Upload.AllowedMimeTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), mimeType) {
			return true
		}
	}
	return false
}

// generateStorageName 生成抗碰撞的存储名, 保留原始扩展名
func generateStorageName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.New().String() + ext
}

func thumbnailStorageName(storageName string) string {
	return "thumb_" + storageName
}

// ownerKey 所有对象都放在 <userID>/ 前缀下
func ownerKey(userID uint, name string) string {
	return fmt.Sprintf("%d/%s", userID, name)
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	return img, nil
}

// optimizeImage 超过最大边长时等比缩小, 统一重压缩为 JPEG
func optimizeImage(img image.Image) ([]byte, error) {
	cfg := config.AppConfig.Upload

	bounds := img.Bounds()
	if bounds.Dx() > cfg.MaxDimension || bounds.Dy() > cfg.MaxDimension {
		img = imaging.Fit(img, cfg.MaxDimension, cfg.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("压缩图片失败: %w", err)
	}
	return buf.Bytes(), nil
}

// makeThumbnail 固定尺寸居中裁剪
func makeThumbnail(img image.Image) ([]byte, error) {
	cfg := config.AppConfig.Thumbnail

	thumb := imaging.Fill(img, cfg.Size, cfg.Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(cfg.Quality)); err != nil {
		return nil, fmt.Errorf("生成缩略图失败: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizeTags 小写去重, 丢弃空白项, 保持首次出现的顺序
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
