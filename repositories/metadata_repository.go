package repositories

import (
	"context"
	"time"

	"pixvault/models"

	"gorm.io/gorm"
)

var terminalStatuses = []string{models.AIStatusCompleted, models.AIStatusFailed}

type GormMetadataRepository struct {
	db *gorm.DB
}

func NewGormMetadataRepository(db *gorm.DB) *GormMetadataRepository {
	return &GormMetadataRepository{db: db}
}

func (r *GormMetadataRepository) Create(_ context.Context, tx *gorm.DB, meta *models.ImageMetadata) error {
	return useTx(r.db, tx).Create(meta).Error
}

func (r *GormMetadataRepository) GetByImageID(_ context.Context, tx *gorm.DB, imageID uint) (models.ImageMetadata, error) {
	var meta models.ImageMetadata
	err := useTx(r.db, tx).Where("image_id = ?", imageID).First(&meta).Error
	return meta, err
}

func (r *GormMetadataRepository) GetByImageIDAndUser(_ context.Context, tx *gorm.DB, imageID uint, userID uint) (models.ImageMetadata, error) {
	var meta models.ImageMetadata
	err := useTx(r.db, tx).Where("image_id = ? AND user_id = ?", imageID, userID).First(&meta).Error
	return meta, err
}

func (r *GormMetadataRepository) ReplaceTags(_ context.Context, tx *gorm.DB, imageID uint, tags []string) error {
	return useTx(r.db, tx).Model(&models.ImageMetadata{}).
		Where("image_id = ?", imageID).
		Updates(map[string]interface{}{
			"tags":       models.StringList(tags),
			"updated_at": time.Now(),
		}).Error
}

func (r *GormMetadataRepository) MarkProcessing(_ context.Context, tx *gorm.DB, imageID uint) error {
	return useTx(r.db, tx).Model(&models.ImageMetadata{}).
		Where("image_id = ? AND ai_processing_status NOT IN ?", imageID, terminalStatuses).
		Updates(map[string]interface{}{
			"ai_processing_status": models.AIStatusProcessing,
			"updated_at":           time.Now(),
		}).Error
}

func (r *GormMetadataRepository) CompleteAnalysis(_ context.Context, tx *gorm.DB, imageID uint, description string, tags []string, colors []string) error {
	return useTx(r.db, tx).Model(&models.ImageMetadata{}).
		Where("image_id = ? AND ai_processing_status NOT IN ?", imageID, terminalStatuses).
		Updates(map[string]interface{}{
			"description":          description,
			"tags":                 models.StringList(tags),
			"colors":               models.StringList(colors),
			"ai_processing_status": models.AIStatusCompleted,
			"updated_at":           time.Now(),
		}).Error
}

func (r *GormMetadataRepository) MarkFailed(_ context.Context, tx *gorm.DB, imageID uint) error {
	return useTx(r.db, tx).Model(&models.ImageMetadata{}).
		Where("image_id = ? AND ai_processing_status NOT IN ?", imageID, terminalStatuses).
		Updates(map[string]interface{}{
			"ai_processing_status": models.AIStatusFailed,
			"updated_at":           time.Now(),
		}).Error
}

func (r *GormMetadataRepository) DeleteByImageID(_ context.Context, tx *gorm.DB, imageID uint) error {
	return useTx(r.db, tx).Where("image_id = ?", imageID).Delete(&models.ImageMetadata{}).Error
}
