// Package pagination 实现分页控制器：每个视图会话一个事件循环，
// 独占会话状态，发起 DataSource 调用，并保证"最后一次请求获胜"。
package pagination

import (
	"context"
	"log"
	"sync"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/internal/provider"
	"sheetview-go-server/internal/viewchannel"
)

// 默认配置
const (
	DefaultPageSize = 50
	DefaultTimeout  = 15 * time.Second
)

// Config 控制器配置
type Config struct {
	PageSize int            // 每页行数，会话内不可变
	Timeout  time.Duration  // 单次提供者往返的上限
	MaxPages int            // 页码上限，0 表示不限制
	RowWidth RowWidthPolicy // 行宽校验策略
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RowWidth == "" {
		c.RowWidth = RowWidthNormalize
	}
	return c
}

// Host 宿主上下文，构造时显式注入，不依赖任何全局状态
type Host interface {
	// ReportError 提供者失败时通知宿主（对用户可见）
	ReportError(sessionID string, kind domainErrors.Kind, reason string)
}

// direction 请求来源，决定空页如何处理
type direction int

const (
	dirInitial direction = iota
	dirForward
	dirBackward
	dirReload
	dirRefill // 越过末尾后回填最后一页
)

func (d direction) String() string {
	switch d {
	case dirInitial:
		return "initial"
	case dirForward:
		return "next"
	case dirBackward:
		return "prev"
	case dirReload:
		return "reload"
	default:
		return "refill"
	}
}

// result 提供者调用结果
type result struct {
	seq  int64
	page int
	rows []entity.Row
	err  error
}

// Controller 分页控制器
// session 以及 pending 等字段只在 run() 内访问，无需锁
type Controller struct {
	session entity.ViewSession

	ds      provider.DataSource
	channel *viewchannel.Channel
	host    Host
	cfg     Config

	// 事件通道
	results  chan result
	timeouts chan int64
	queries  chan chan entity.ViewSession
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	// 事件循环私有状态
	pending       int64 // 等待结果的 seq，0 表示没有
	pendingDir    direction
	displayedPage int // 渲染面当前显示的页码，0 表示还没有
	timer         *time.Timer
}

// New 创建控制器（状态 Idle），Start 后开始加载第一页
func New(sessionID, filePath string, sheet entity.SheetDescriptor, ds provider.DataSource,
	channel *viewchannel.Channel, host Host, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		session: entity.ViewSession{
			ID:          sessionID,
			FilePath:    filePath,
			Sheet:       sheet,
			PageSize:    cfg.PageSize,
			CurrentPage: 1,
			State:       entity.StateIdle,
		},
		ds:       ds,
		channel:  channel,
		host:     host,
		cfg:      cfg,
		results:  make(chan result),
		timeouts: make(chan int64),
		queries:  make(chan chan entity.ViewSession),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 启动事件循环：Idle -> Loading(第 1 页)
func (c *Controller) Start() {
	go c.run()
}

// Close 关闭会话，阻塞直到事件循环退出，可重复调用
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.done
}

// Done 事件循环退出信号
func (c *Controller) Done() <-chan struct{} { return c.done }

// Snapshot 通过事件循环读取会话状态副本
func (c *Controller) Snapshot(ctx context.Context) (entity.ViewSession, error) {
	reply := make(chan entity.ViewSession, 1)
	select {
	case c.queries <- reply:
	case <-c.done:
		return entity.ViewSession{}, domainErrors.ErrSessionClosed
	case <-ctx.Done():
		return entity.ViewSession{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return entity.ViewSession{}, ctx.Err()
	}
}

// run 所有会话状态的读写都在这里串行处理
func (c *Controller) run() {
	defer func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.cancel()
		c.channel.Close()
		close(c.done)
		log.Printf("[Controller %s] 🛑 事件循环已停止 (已加载 %d 页)", c.session.ID, c.session.PagesLoaded)
	}()

	log.Printf("[Controller %s] 🚀 打开 %s / %s, 每页 %d 行",
		c.session.ID, c.session.FilePath, c.session.Sheet.Name, c.session.PageSize)
	c.issue(1, dirInitial)

	for {
		select {
		case msg := <-c.channel.Inbound():
			c.handleCommand(msg.Type)

		case res := <-c.results:
			c.handleResult(res)

		case seq := <-c.timeouts:
			c.handleTimeout(seq)

		case reply := <-c.queries:
			reply <- c.snapshot()

		case <-c.stopChan:
			return
		}
	}
}

func (c *Controller) snapshot() entity.ViewSession {
	s := c.session
	s.Sheet.Columns = append([]string(nil), c.session.Sheet.Columns...)
	return s
}

// handleCommand 处理渲染面的 next / prev / reload
func (c *Controller) handleCommand(t viewchannel.MessageType) {
	state := c.session.State
	page := c.session.CurrentPage

	switch t {
	case viewchannel.TypeNext:
		if state != entity.StateReady && state != entity.StateLoading {
			log.Printf("[Controller %s] 忽略 next (状态 %s)", c.session.ID, state)
			return
		}
		if c.cfg.MaxPages > 0 && page >= c.cfg.MaxPages {
			if state == entity.StateReady {
				c.session.State = entity.StateEndOfData
				c.emit(viewchannel.NewEndOfData(page, c.session.LastRequestSeq))
				log.Printf("[Controller %s] 已达到页码上限 %d", c.session.ID, c.cfg.MaxPages)
			}
			return
		}
		c.issue(page+1, dirForward)

	case viewchannel.TypePrev:
		// 第 1 页上 prev 是空操作：不调用提供者，状态不变
		if state == entity.StateIdle || page <= 1 {
			return
		}
		c.issue(page-1, dirBackward)

	case viewchannel.TypeReload:
		if state == entity.StateIdle {
			return
		}
		c.issue(page, dirReload)
	}
}

// issue 发起一次 readPage，递增 lastRequestSeq 并附在请求上
// 之前在途的调用不取消，它的结果到达时会因 seq 过期被丢弃
func (c *Controller) issue(page int, dir direction) {
	c.session.LastRequestSeq++
	seq := c.session.LastRequestSeq

	c.session.CurrentPage = page
	c.session.State = entity.StateLoading
	c.pending = seq
	c.pendingDir = dir

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.cfg.Timeout, func() {
		select {
		case c.timeouts <- seq:
		case <-c.done:
		}
	})

	req := entity.PageRequest{
		FilePath:   c.session.FilePath,
		SheetName:  c.session.Sheet.Name,
		PageNumber: page,
		PageSize:   c.session.PageSize,
		RequestSeq: seq,
	}

	log.Printf("[Controller %s] 📤 请求第 %d 页 (%s, seq=%d)", c.session.ID, page, dir, seq)

	go func() {
		// 超时由事件循环的计时器判定；这里的上限只用于回收挂起的提供者进程
		ctx, cancel := context.WithTimeout(c.ctx, 2*c.cfg.Timeout)
		defer cancel()

		res, err := c.ds.ReadPage(ctx, req)
		select {
		case c.results <- result{seq: seq, page: page, rows: res.Rows, err: err}:
		case <-c.done:
		}
	}()
}

// handleTimeout 在途请求超时：进入 Error(Timeout)，之后到达的结果仍按 seq 丢弃
func (c *Controller) handleTimeout(seq int64) {
	if seq != c.pending {
		return
	}
	c.pending = 0
	log.Printf("[Controller %s] ⏱️ 第 %d 页请求超时 (seq=%d)", c.session.ID, c.session.CurrentPage, seq)
	c.fail(seq, domainErrors.NewProviderError(domainErrors.KindTimeout,
		"data provider did not respond within "+c.cfg.Timeout.String(), nil))
}

// handleResult 只应用与最新 lastRequestSeq 一致的结果
func (c *Controller) handleResult(res result) {
	if res.seq != c.session.LastRequestSeq || res.seq != c.pending {
		log.Printf("[Controller %s] 丢弃过期结果 (seq=%d, 当前 seq=%d)",
			c.session.ID, res.seq, c.session.LastRequestSeq)
		return
	}

	dir := c.pendingDir
	c.pending = 0
	if c.timer != nil {
		c.timer.Stop()
	}

	if res.err != nil {
		c.fail(res.seq, res.err)
		return
	}

	rows, err := shapeRows(res.rows, len(c.session.Sheet.Columns), c.cfg.RowWidth)
	if err != nil {
		c.fail(res.seq, err)
		return
	}

	// 回填的页也可能是空的（数据只有更少的页），继续后退，最多退到第 1 页
	if len(rows) == 0 && (dir == dirForward || (dir == dirRefill && res.page > 1)) {
		// 不越过边界：退回上一页
		c.session.CurrentPage = res.page - 1
		c.session.State = entity.StateEndOfData
		c.emit(viewchannel.NewEndOfData(c.session.CurrentPage, res.seq))
		log.Printf("[Controller %s] 📭 第 %d 页为空，停在第 %d 页", c.session.ID, res.page, c.session.CurrentPage)

		// 连续 next 时渲染面可能还停在更早的页，回填真正的最后一页
		if c.displayedPage != c.session.CurrentPage {
			c.issue(c.session.CurrentPage, dirRefill)
		}
		return
	}

	c.session.State = entity.StateReady
	if dir == dirRefill {
		c.session.State = entity.StateEndOfData
	}
	c.session.PagesLoaded++
	c.displayedPage = res.page
	c.emit(viewchannel.NewPage(res.page, res.seq, rows))
	log.Printf("[Controller %s] ✅ 第 %d 页, %d 行 (seq=%d)", c.session.ID, res.page, len(rows), res.seq)
}

// fail 进入 Error 状态；会话仍可用，reload 会重试同一页
func (c *Controller) fail(seq int64, err error) {
	kind := domainErrors.KindOf(err)
	reason := domainErrors.ReasonOf(err)

	c.session.State = entity.StateError
	c.emit(viewchannel.NewError(kind, reason, seq))
	if c.host != nil {
		c.host.ReportError(c.session.ID, kind, reason)
	}
	log.Printf("[Controller %s] ❌ 第 %d 页失败 [%s]: %s", c.session.ID, c.session.CurrentPage, kind, reason)
}

func (c *Controller) emit(msg viewchannel.Message) {
	c.channel.SendToSurface(msg)
}
