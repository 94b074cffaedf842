package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ViewRecord 视图打开记录（只做历史展示，不用于恢复会话状态）
type ViewRecord struct {
	ID          uint           `gorm:"primaryKey"`
	SessionID   string         `gorm:"uniqueIndex;size:64"`
	FilePath    string         `gorm:"size:1024;index"`
	SheetName   string         `gorm:"size:255"`
	OpenedBy    string         `gorm:"size:255;index"` // 打开者的用户 ID，未启用鉴权时为空
	Columns     datatypes.JSON `gorm:"type:jsonb"`
	PageSize    int
	PagesLoaded int
	OpenedAt    time.Time
	ClosedAt    *time.Time
}
