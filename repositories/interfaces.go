package repositories

import (
	"context"

	"pixvault/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByUsername(ctx context.Context, username string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
}

type ImageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, image *models.Image) error
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, imageID uint, userID uint, preloadMetadata bool) (models.Image, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uint) (int64, error)
	// ListByUser 按上传时间倒序分页, 预载元数据
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint, offset int, limit int) ([]models.Image, error)
	// ListAllByUser 加载该用户全部图像, 搜索在过滤前需要完整集合
	ListAllByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Image, error)
	DeleteByIDAndUser(ctx context.Context, tx *gorm.DB, imageID uint, userID uint) error
}

type MetadataRepository interface {
	Create(ctx context.Context, tx *gorm.DB, meta *models.ImageMetadata) error
	GetByImageID(ctx context.Context, tx *gorm.DB, imageID uint) (models.ImageMetadata, error)
	GetByImageIDAndUser(ctx context.Context, tx *gorm.DB, imageID uint, userID uint) (models.ImageMetadata, error)
	ReplaceTags(ctx context.Context, tx *gorm.DB, imageID uint, tags []string) error
	// MarkProcessing/CompleteAnalysis/MarkFailed 均带终态保护,
	// 对已 completed/failed 的行是空操作
	MarkProcessing(ctx context.Context, tx *gorm.DB, imageID uint) error
	CompleteAnalysis(ctx context.Context, tx *gorm.DB, imageID uint, description string, tags []string, colors []string) error
	MarkFailed(ctx context.Context, tx *gorm.DB, imageID uint) error
	DeleteByImageID(ctx context.Context, tx *gorm.DB, imageID uint) error
}

type Container struct {
	TxManager TxManager
	Users     UserRepository
	Images    ImageRepository
	Metadata  MetadataRepository
}
