package services

import (
	"context"

	"gorm.io/gorm"
)

// TxManager 把元数据行和图片行的删除收进同一个事务
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
