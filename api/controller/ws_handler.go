package controller

import (
	"errors"
	"log"
	"net/http"

	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/internal/session"
	"sheetview-go-server/internal/viewchannel"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// WSHandler ViewChannel 的 WebSocket 入口
type WSHandler struct {
	registry     *session.Registry
	upgrader     websocket.Upgrader
	commandRate  rate.Limit
	commandBurst int
}

// NewWSHandler 构造函数
func NewWSHandler(registry *session.Registry, allowedOrigins []string, commandRate float64, commandBurst int) *WSHandler {
	return &WSHandler{
		registry:     registry,
		commandRate:  rate.Limit(commandRate),
		commandBurst: commandBurst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 渲染面页面由本服务输出，同源总是允许
				if origin == "" || origin == requestOrigin(r) {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] ⚠️ 拒绝来自 %s 的连接", origin)
				return false
			},
		},
	}
}

// HandleWS 处理 WebSocket 升级请求
// GET /ws?session=xxx&token=xxx
// token 是会话策略里的随机令牌，只有打开该会话的渲染面页面知道
func (h *WSHandler) HandleWS(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session 不能为空"})
		return
	}

	// 令牌只从查询参数读取
	token := c.Query("token")

	// 1. 接入会话（校验令牌，单渲染面）
	s, err := h.registry.Attach(sessionID, token)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "会话不存在"})
		case errors.Is(err, domainErrors.ErrInvalidToken):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "令牌无效"})
		case errors.Is(err, domainErrors.ErrSurfaceAttached):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "会话已在其它窗口打开"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	// 2. 升级为 WebSocket 连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] ❌ 升级 WebSocket 失败: %v", err)
		h.registry.Detach(s)
		return
	}

	// 3. 桥接到会话通道
	limiter := rate.NewLimiter(h.commandRate, h.commandBurst)
	client := viewchannel.NewClient(s.ID, conn, s.Channel(), s.Surface(), limiter)

	log.Printf("[WS] ✅ 渲染面连接到会话 [%s]", s.ID)

	// 4. 启动读写协程，ReadPump 返回即视为断开
	go client.WritePump()
	go func() {
		client.ReadPump()
		h.registry.Detach(s)
	}()
}
