// Package session 管理视图会话的生命周期：打开、渲染面接入/断开、关闭。
// Registry 不处理任何分页消息，分页完全交给每个会话自己的控制器。
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/domain/repository"
	"sheetview-go-server/internal/pagination"
	"sheetview-go-server/internal/provider"
	"sheetview-go-server/internal/security"
	"sheetview-go-server/internal/surface"
	"sheetview-go-server/internal/viewchannel"

	"github.com/google/uuid"
)

// DefaultIdleGrace 渲染面断开后会话保留的时间
const DefaultIdleGrace = 30 * time.Second

// Config 会话配置
type Config struct {
	Pagination    pagination.Config
	IdleGrace     time.Duration // 没有渲染面连接时的保留时间
	ChannelBuffer int
	MaxCellChars  int
}

// Session 一个打开的视图
type Session struct {
	ID       string
	FilePath string
	Sheet    entity.SheetDescriptor
	Policy   security.Policy
	OpenedBy string
	OpenedAt time.Time

	controller *pagination.Controller
	channel    *viewchannel.Channel
	surface    *surface.Surface

	mu        sync.Mutex
	attached  bool
	reattach  bool // 之前有过渲染面
	idleTimer *time.Timer
}

// Channel 会话的消息通道
func (s *Session) Channel() *viewchannel.Channel { return s.channel }

// Surface 连接侧的渲染面镜像
func (s *Session) Surface() *surface.Surface { return s.surface }

// Snapshot 会话状态副本
func (s *Session) Snapshot(ctx context.Context) (entity.ViewSession, error) {
	return s.controller.Snapshot(ctx)
}

// Registry 会话目录
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	ds       provider.DataSource
	policies *security.Generator
	history  repository.ViewRecordRepository // nil 表示未启用浏览历史
	cfg      Config
}

// NewRegistry 创建 Registry
func NewRegistry(ds provider.DataSource, policies *security.Generator, history repository.ViewRecordRepository, cfg Config) *Registry {
	if cfg.IdleGrace <= 0 {
		cfg.IdleGrace = DefaultIdleGrace
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ds:       ds,
		policies: policies,
		history:  history,
		cfg:      cfg,
	}
}

// Open 校验文件和工作表后创建会话，并开始加载第一页
// 文件或工作表为空视为用户取消选择，不创建会话；openedBy 只写入浏览历史
func (r *Registry) Open(ctx context.Context, filePath, sheetName, openedBy string) (*Session, error) {
	if filePath == "" || sheetName == "" {
		return nil, domainErrors.Cancelled()
	}
	if err := provider.CheckFormat(filePath); err != nil {
		return nil, err
	}

	sheets, err := r.ListSheets(ctx, filePath)
	if err != nil {
		return nil, err
	}
	sheet, ok := entity.FindSheet(sheets, sheetName)
	if !ok {
		return nil, domainErrors.NewProviderError(domainErrors.KindSheetNotFound,
			"sheet \""+sheetName+"\" not found", nil)
	}

	policy, err := r.policies.NewPolicy()
	if err != nil {
		return nil, err
	}

	surf, err := surface.New(sheet.Columns, surface.WithMaxCellChars(r.cfg.MaxCellChars))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ch := viewchannel.NewChannel(r.cfg.ChannelBuffer)
	s := &Session{
		ID:         id,
		FilePath:   filePath,
		Sheet:      sheet,
		Policy:     policy,
		OpenedBy:   openedBy,
		OpenedAt:   time.Now(),
		controller: pagination.New(id, filePath, sheet, r.ds, ch, r, r.cfg.Pagination),
		channel:    ch,
		surface:    surf,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	s.controller.Start()
	r.armIdle(s)
	r.recordOpen(s)

	log.Printf("[Registry] 🏠 打开会话 %s: %s / %s (%d 列)", id, filePath, sheet.Name, len(sheet.Columns))
	return s, nil
}

// ListSheets 列出文件中的工作表，单次往返受提供者超时限制
func (r *Registry) ListSheets(ctx context.Context, filePath string) ([]entity.SheetDescriptor, error) {
	if filePath == "" {
		return nil, domainErrors.Cancelled()
	}
	return provider.ListSheetsWithin(ctx, r.ds, filePath, r.providerTimeout())
}

// Get 获取会话
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return s, nil
}

// Count 当前打开的会话数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Attach 渲染面接入，每个会话同时只允许一个
// 重新接入时发送一次 reload，让新的渲染面拿到当前页
func (r *Registry) Attach(id, token string) (*Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.Policy.Token)) != 1 {
		return nil, domainErrors.ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return nil, domainErrors.ErrSurfaceAttached
	}
	s.attached = true
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.reattach {
		s.channel.SendToController(viewchannel.NewCommand(viewchannel.TypeReload))
		log.Printf("[Registry] 🔄 会话 %s 渲染面重新接入", id)
	}
	return s, nil
}

// Detach 渲染面断开，超过宽限时间没有重新接入则关闭会话
func (r *Registry) Detach(s *Session) {
	s.mu.Lock()
	s.attached = false
	s.reattach = true
	s.mu.Unlock()

	r.armIdle(s)
	log.Printf("[Registry] 会话 %s 渲染面已断开，%s 后关闭", s.ID, r.cfg.IdleGrace)
}

func (r *Registry) armIdle(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(r.cfg.IdleGrace, func() { r.closeIfIdle(s) })
}

// closeIfIdle 双重检查：计时器触发期间可能又有渲染面接入
func (r *Registry) closeIfIdle(s *Session) {
	s.mu.Lock()
	attached := s.attached
	s.mu.Unlock()

	if attached {
		log.Printf("[Registry] 🔄 会话 %s 已有渲染面，取消关闭", s.ID)
		return
	}
	if err := r.closeSession(s); err == nil {
		log.Printf("[Registry] ⌛ 会话 %s 空闲超时，已关闭", s.ID)
	}
}

// Close 关闭会话：停止控制器，关闭通道，补全浏览历史
func (r *Registry) Close(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.closeSession(s)
}

func (r *Registry) closeSession(s *Session) error {
	// 检查指针同一性，只删除自己
	r.mu.Lock()
	current, ok := r.sessions[s.ID]
	if !ok || current != s {
		r.mu.Unlock()
		return domainErrors.ErrSessionNotFound
	}
	delete(r.sessions, s.ID)
	r.mu.Unlock()

	s.mu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	snapshot, _ := s.controller.Snapshot(ctx)
	cancel()

	s.controller.Close()
	r.recordClose(s.ID, snapshot.PagesLoaded)

	log.Printf("[Registry] 🗑️ 会话 %s 已关闭", s.ID)
	return nil
}

// CloseAll 停机时关闭所有会话
func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		r.closeSession(s)
	}
	log.Printf("[Registry] 已关闭 %d 个会话", len(sessions))
}

// ReportError 实现 pagination.Host
func (r *Registry) ReportError(sessionID string, kind domainErrors.Kind, reason string) {
	log.Printf("[Registry] ⚠️ 会话 %s 加载失败 [%s]: %s", sessionID, kind, reason)
}

// History 最近的浏览记录
func (r *Registry) History(limit int) ([]entity.ViewRecord, error) {
	if r.history == nil {
		return nil, domainErrors.ErrHistoryDisabled
	}
	return r.history.ListRecent(limit)
}

// 浏览历史只是附加信息，写入失败不影响会话
func (r *Registry) recordOpen(s *Session) {
	if r.history == nil {
		return
	}
	columns, _ := json.Marshal(s.Sheet.Columns)
	record := &entity.ViewRecord{
		SessionID: s.ID,
		FilePath:  s.FilePath,
		SheetName: s.Sheet.Name,
		OpenedBy:  s.OpenedBy,
		Columns:   columns,
		PageSize:  r.pageSize(),
		OpenedAt:  s.OpenedAt,
	}
	if err := r.history.Create(record); err != nil {
		log.Printf("[Registry] ⚠️ 写入浏览历史失败: %v", err)
	}
}

func (r *Registry) recordClose(sessionID string, pagesLoaded int) {
	if r.history == nil {
		return
	}
	if err := r.history.MarkClosed(sessionID, pagesLoaded); err != nil && !errors.Is(err, domainErrors.ErrRecordNotFound) {
		log.Printf("[Registry] ⚠️ 更新浏览历史失败: %v", err)
	}
}

func (r *Registry) providerTimeout() time.Duration {
	if r.cfg.Pagination.Timeout > 0 {
		return r.cfg.Pagination.Timeout
	}
	return pagination.DefaultTimeout
}

func (r *Registry) pageSize() int {
	if r.cfg.Pagination.PageSize > 0 {
		return r.cfg.Pagination.PageSize
	}
	return pagination.DefaultPageSize
}
