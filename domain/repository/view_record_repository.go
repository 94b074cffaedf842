package repository

import "sheetview-go-server/domain/entity"

// ViewRecordRepository 浏览历史仓库接口
type ViewRecordRepository interface {
	// Create 会话打开时写入
	Create(record *entity.ViewRecord) error

	// MarkClosed 会话关闭时补全关闭时间和已加载页数
	// 记录不存在返回 ErrRecordNotFound
	MarkClosed(sessionID string, pagesLoaded int) error

	// ListRecent 最近打开的视图，按打开时间倒序
	ListRecent(limit int) ([]entity.ViewRecord, error)
}
