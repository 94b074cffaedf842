package repository

import (
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
	domainRepo "sheetview-go-server/domain/repository"

	"gorm.io/gorm"
)

// viewRecordRepository GORM 实现 ViewRecordRepository 接口
type viewRecordRepository struct {
	db *gorm.DB
}

// NewViewRecordRepository 构造函数
func NewViewRecordRepository(db *gorm.DB) domainRepo.ViewRecordRepository {
	return &viewRecordRepository{db: db}
}

// Create 写入新记录
func (r *viewRecordRepository) Create(record *entity.ViewRecord) error {
	if record.OpenedAt.IsZero() {
		record.OpenedAt = time.Now()
	}
	return r.db.Create(record).Error
}

// MarkClosed 只更新关闭相关字段
// ⚠️ 不用 Save，避免覆盖打开时写入的列信息
func (r *viewRecordRepository) MarkClosed(sessionID string, pagesLoaded int) error {
	now := time.Now()
	result := r.db.Model(&entity.ViewRecord{}).
		Where("session_id = ? AND closed_at IS NULL", sessionID).
		Updates(map[string]interface{}{
			"closed_at":    now,
			"pages_loaded": pagesLoaded,
		})

	if result.Error != nil {
		return result.Error
	}

	// RowsAffected == 0：记录不存在或已关闭
	if result.RowsAffected == 0 {
		return domainErrors.ErrRecordNotFound
	}
	return nil
}

// ListRecent 最近打开的视图
func (r *viewRecordRepository) ListRecent(limit int) ([]entity.ViewRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []entity.ViewRecord
	err := r.db.Order("opened_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
