package models

import "time"

type Image struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Filename      string         `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalPath  string         `gorm:"type:varchar(1000);not null" json:"original_path"`
	ThumbnailPath string         `gorm:"type:varchar(1000);not null" json:"thumbnail_path"`
	CreatedAt     time.Time      `gorm:"index" json:"uploaded_at"`
	Metadata      *ImageMetadata `gorm:"foreignKey:ImageID" json:"metadata,omitempty"`
}
