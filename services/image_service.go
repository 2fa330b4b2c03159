package services

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"gorm.io/gorm"

	"pixvault/config"
	"pixvault/models"
	"pixvault/repositories"
	"pixvault/storage"
	"pixvault/utils"
)

type ImageView struct {
	ID            uint                  `json:"id"`
	Filename      string                `json:"filename"`
	OriginalPath  string                `json:"original_path"`
	ThumbnailPath string                `json:"thumbnail_path"`
	UploadedAt    time.Time             `json:"uploaded_at"`
	ThumbnailURL  string                `json:"thumbnailUrl,omitempty"`
	OriginalURL   string                `json:"originalUrl,omitempty"`
	Metadata      *models.ImageMetadata `json:"metadata"`
}

type ImageListOutput struct {
	Images     []ImageView          `json:"images"`
	Pagination utils.PaginationData `json:"pagination"`
}

type ImageService interface {
	ListImages(ctx context.Context, userID uint, page int, pageSize int) (ImageListOutput, error)
	GetImage(ctx context.Context, userID uint, imageID uint) (ImageView, error)
	UpdateTags(ctx context.Context, userID uint, imageID uint, tags []string) ([]string, error)
	DeleteImage(ctx context.Context, userID uint, imageID uint) error
}

type imageService struct {
	txManager TxManager
	images    repositories.ImageRepository
	metadata  repositories.MetadataRepository
	store     storage.ObjectStorage
}

func NewImageService(
	txManager TxManager,
	images repositories.ImageRepository,
	metadata repositories.MetadataRepository,
	store storage.ObjectStorage,
) ImageService {
	return &imageService{txManager: txManager, images: images, metadata: metadata, store: store}
}

func signedURLExpire() time.Duration {
	return time.Duration(config.AppConfig.Storage.SignedURLExpire) * time.Second
}

func (s *imageService) ListImages(ctx context.Context, userID uint, page int, pageSize int) (ImageListOutput, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > config.AppConfig.Pagination.MaxPageSize {
		pageSize = config.AppConfig.Pagination.DefaultPageSize
	}

	total, err := s.images.CountByUser(ctx, nil, userID)
	if err != nil {
		return ImageListOutput{}, newAppError(http.StatusInternalServerError, "查询图片总数失败", err)
	}

	list, err := s.images.ListByUser(ctx, nil, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return ImageListOutput{}, newAppError(http.StatusInternalServerError, "查询图片列表失败", err)
	}

	views := s.buildViews(ctx, list)

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	return ImageListOutput{
		Images: views,
		Pagination: utils.PaginationData{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// buildViews 批量解析缩略图签名 URL, 解析不出来的路径直接跳过
func (s *imageService) buildViews(ctx context.Context, list []models.Image) []ImageView {
	paths := make([]string, 0, len(list))
	for _, img := range list {
		if img.ThumbnailPath != "" {
			paths = append(paths, img.ThumbnailPath)
		}
	}
	urlMap := s.store.BulkSignedURL(ctx, paths, signedURLExpire())

	views := make([]ImageView, 0, len(list))
	for _, img := range list {
		views = append(views, ImageView{
			ID:            img.ID,
			Filename:      img.Filename,
			OriginalPath:  img.OriginalPath,
			ThumbnailPath: img.ThumbnailPath,
			UploadedAt:    img.CreatedAt,
			ThumbnailURL:  urlMap[img.ThumbnailPath],
			Metadata:      img.Metadata,
		})
	}
	return views
}

func (s *imageService) GetImage(ctx context.Context, userID uint, imageID uint) (ImageView, error) {
	img, err := s.images.GetByIDAndUser(ctx, nil, imageID, userID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ImageView{}, newNotFound("图片不存在")
		}
		return ImageView{}, newAppError(http.StatusInternalServerError, "查询图片失败", err)
	}

	expire := signedURLExpire()
	originalURL, err := s.store.SignedURL(ctx, img.OriginalPath, expire)
	if err != nil {
		return ImageView{}, newAppError(http.StatusInternalServerError, "生成签名 URL 失败", err)
	}
	thumbnailURL, err := s.store.SignedURL(ctx, img.ThumbnailPath, expire)
	if err != nil {
		return ImageView{}, newAppError(http.StatusInternalServerError, "生成签名 URL 失败", err)
	}

	return ImageView{
		ID:            img.ID,
		Filename:      img.Filename,
		OriginalPath:  img.OriginalPath,
		ThumbnailPath: img.ThumbnailPath,
		UploadedAt:    img.CreatedAt,
		OriginalURL:   originalURL,
		ThumbnailURL:  thumbnailURL,
		Metadata:      img.Metadata,
	}, nil
}

func (s *imageService) UpdateTags(ctx context.Context, userID uint, imageID uint, tags []string) ([]string, error) {
	if _, err := s.metadata.GetByImageIDAndUser(ctx, nil, imageID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFound("图片不存在")
		}
		return nil, newAppError(http.StatusInternalServerError, "查询元数据失败", err)
	}

	normalized := normalizeTags(tags)
	if err := s.metadata.ReplaceTags(ctx, nil, imageID, normalized); err != nil {
		return nil, newAppError(http.StatusInternalServerError, "更新标签失败", err)
	}
	return normalized, nil
}

func (s *imageService) DeleteImage(ctx context.Context, userID uint, imageID uint) error {
	img, err := s.images.GetByIDAndUser(ctx, nil, imageID, userID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newNotFound("图片不存在")
		}
		return newAppError(http.StatusInternalServerError, "查询图片失败", err)
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.metadata.DeleteByImageID(ctx, tx, imageID); err != nil {
			return err
		}
		return s.images.DeleteByIDAndUser(ctx, tx, imageID, userID)
	})
	if err != nil {
		return newAppError(http.StatusInternalServerError, "删除图片失败", err)
	}

	// 对象删除是尽力而为, 但结果必须落日志, 避免静默泄漏
	go func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, path := range []string{img.OriginalPath, img.ThumbnailPath} {
			if path == "" {
				continue
			}
			if err := s.store.Delete(cleanupCtx, path); err != nil {
				log.Printf("删除对象失败 %s: %v", path, err)
			}
		}
	}()

	return nil
}
