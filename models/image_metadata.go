package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AI 处理状态只会向前推进: pending -> processing -> {completed, failed}
const (
	AIStatusPending    = "pending"
	AIStatusProcessing = "processing"
	AIStatusCompleted  = "completed"
	AIStatusFailed     = "failed"
)

type ImageMetadata struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	ImageID            uint       `gorm:"not null;uniqueIndex" json:"image_id"`
	UserID             uint       `gorm:"not null;index" json:"user_id"`
	Description        string     `gorm:"type:text" json:"description"`
	Tags               StringList `gorm:"type:json" json:"tags"`
	Colors             StringList `gorm:"type:json" json:"colors"`
	AIProcessingStatus string     `gorm:"type:varchar(20);default:pending;index" json:"ai_processing_status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTerminal 终态不允许任何回退
func (m *ImageMetadata) IsTerminal() bool {
	return m.AIProcessingStatus == AIStatusCompleted || m.AIProcessingStatus == AIStatusFailed
}

// StringList 以 JSON 数组形式存储在 MySQL json 列中
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

func (l StringList) Contains(s string) bool {
	for _, item := range l {
		if item == s {
			return true
		}
	}
	return false
}
