package repositories

import (
	"context"

	"pixvault/models"

	"gorm.io/gorm"
)

type GormImageRepository struct {
	db *gorm.DB
}

func NewGormImageRepository(db *gorm.DB) *GormImageRepository {
	return &GormImageRepository{db: db}
}

func (r *GormImageRepository) Create(_ context.Context, tx *gorm.DB, image *models.Image) error {
	return useTx(r.db, tx).Create(image).Error
}

func (r *GormImageRepository) GetByIDAndUser(_ context.Context, tx *gorm.DB, imageID uint, userID uint, preloadMetadata bool) (models.Image, error) {
	db := useTx(r.db, tx)
	if preloadMetadata {
		db = db.Preload("Metadata")
	}
	var image models.Image
	err := db.Where("id = ? AND user_id = ?", imageID, userID).First(&image).Error
	return image, err
}

func (r *GormImageRepository) CountByUser(_ context.Context, tx *gorm.DB, userID uint) (int64, error) {
	var total int64
	err := useTx(r.db, tx).Model(&models.Image{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

func (r *GormImageRepository) ListByUser(_ context.Context, tx *gorm.DB, userID uint, offset int, limit int) ([]models.Image, error) {
	var images []models.Image
	err := useTx(r.db, tx).Preload("Metadata").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&images).Error
	return images, err
}

func (r *GormImageRepository) ListAllByUser(_ context.Context, tx *gorm.DB, userID uint) ([]models.Image, error) {
	var images []models.Image
	err := useTx(r.db, tx).Preload("Metadata").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&images).Error
	return images, err
}

func (r *GormImageRepository) DeleteByIDAndUser(_ context.Context, tx *gorm.DB, imageID uint, userID uint) error {
	return useTx(r.db, tx).Where("id = ? AND user_id = ?", imageID, userID).Delete(&models.Image{}).Error
}
