package usecase

import (
	"context"
	"path/filepath"

	"sheetview-go-server/domain/entity"
	"sheetview-go-server/internal/security"
	"sheetview-go-server/internal/session"
	"sheetview-go-server/internal/surface"
)

// ViewerUseCase 表格查看业务逻辑层
// 分页状态只存在于会话控制器中
type ViewerUseCase struct {
	registry *session.Registry
}

// NewViewerUseCase 构造函数，依赖注入
func NewViewerUseCase(registry *session.Registry) *ViewerUseCase {
	return &ViewerUseCase{registry: registry}
}

// OpenedView 打开视图的结果
type OpenedView struct {
	SessionID string                 `json:"sessionId"`
	ViewURL   string                 `json:"viewUrl"`
	PageSize  int                    `json:"pageSize"`
	Sheet     entity.SheetDescriptor `json:"sheet"`
}

// ListSheets 列出文件中的工作表（供选择工作表使用）
func (uc *ViewerUseCase) ListSheets(ctx context.Context, filePath string) ([]entity.SheetDescriptor, error) {
	return uc.registry.ListSheets(ctx, filePath)
}

// OpenView 为选中的文件和工作表创建视图会话
// openedBy 为当前用户 ID，未启用鉴权时为空
func (uc *ViewerUseCase) OpenView(ctx context.Context, filePath, sheetName, openedBy string) (*OpenedView, error) {
	s, err := uc.registry.Open(ctx, filePath, sheetName, openedBy)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &OpenedView{
		SessionID: s.ID,
		ViewURL:   "/view/" + s.ID,
		PageSize:  snapshot.PageSize,
		Sheet:     s.Sheet,
	}, nil
}

// SessionInfo 会话状态
func (uc *ViewerUseCase) SessionInfo(ctx context.Context, sessionID string) (entity.ViewSession, error) {
	s, err := uc.registry.Get(sessionID)
	if err != nil {
		return entity.ViewSession{}, err
	}
	return s.Snapshot(ctx)
}

// CloseView 关闭会话
func (uc *ViewerUseCase) CloseView(sessionID string) error {
	return uc.registry.Close(sessionID)
}

// History 最近打开过的视图
func (uc *ViewerUseCase) History(limit int) ([]entity.ViewRecord, error) {
	return uc.registry.History(limit)
}

// ViewPage 组装视图页面
// 行体取自连接侧镜像，刷新页面时直接显示最近一次绘制的数据
func (uc *ViewerUseCase) ViewPage(ctx context.Context, sessionID string) (surface.ViewPage, error) {
	s, err := uc.registry.Get(sessionID)
	if err != nil {
		return surface.ViewPage{}, err
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return surface.ViewPage{}, err
	}
	body, err := s.Surface().BodyHTML()
	if err != nil {
		return surface.ViewPage{}, err
	}

	return surface.ViewPage{
		Title:     s.Sheet.Name + " · " + filepath.Base(s.FilePath),
		SessionID: s.ID,
		Token:     s.Policy.Token,
		AssetPath: s.Policy.AssetPath,
		PageSize:  snapshot.PageSize,
		Header:    s.Surface().HeaderHTML(),
		Body:      body,
	}, nil
}

// Policy 会话的渲染策略
func (uc *ViewerUseCase) Policy(sessionID string) (security.Policy, error) {
	s, err := uc.registry.Get(sessionID)
	if err != nil {
		return security.Policy{}, err
	}
	return s.Policy, nil
}
