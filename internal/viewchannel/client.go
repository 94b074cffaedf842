package viewchannel

import (
	"encoding/json"
	"log"
	"time"

	"sheetview-go-server/internal/surface"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// 心跳配置
const (
	pongWait       = 60 * time.Second    // 等待 Pong 响应的最大时间
	pingPeriod     = (pongWait * 9) / 10 // Ping 发送间隔，必须小于 pongWait
	writeWait      = 10 * time.Second    // 写消息超时时间
	maxMessageSize = 4 * 1024            // 渲染面只发送 next/prev/reload，消息很小
)

// Client 把一个 Channel 桥接到渲染面的 websocket 连接
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	channel   *Channel
	surface   *surface.Surface // 连接侧镜像：丢弃过期 page，生成转义后的行体
	limiter   *rate.Limiter    // 命令洪泛保护
	stop      chan struct{}    // ReadPump 退出后通知 WritePump
}

// NewClient 创建客户端实例
func NewClient(sessionID string, conn *websocket.Conn, channel *Channel, surf *surface.Surface, limiter *rate.Limiter) *Client {
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		channel:   channel,
		surface:   surf,
		limiter:   limiter,
		stop:      make(chan struct{}),
	}
}

// WritePump 负责把控制器消息写给渲染面，并发送心跳 Ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.channel.Outbound():
			data, ok := c.prepare(msg)
			if !ok {
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[WS] 会话 %s 写消息失败: %v", c.SessionID, err)
				return
			}

		case <-c.channel.Done():
			// 会话已关闭，发送关闭帧
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return

		case <-c.stop:
			// 连接已断开，不再从通道取消息，留给下一个连接
			return

		case <-ticker.C:
			// 定时发送 Ping 保活
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// prepare 经过渲染面镜像过滤并编码消息
// 返回 false 表示消息过期或无法编码，不发送
func (c *Client) prepare(msg Message) ([]byte, bool) {
	switch msg.Type {
	case TypePage:
		payload, err := DecodePage(msg)
		if err != nil {
			log.Printf("[WS] ⚠️ 会话 %s page 消息无法解析: %v", c.SessionID, err)
			return nil, false
		}
		applied, err := c.surface.ApplyPage(payload.Page, payload.RequestSeq, payload.Rows)
		if err != nil {
			log.Printf("[WS] ⚠️ 会话 %s 渲染失败: %v", c.SessionID, err)
			return nil, false
		}
		if !applied {
			log.Printf("[WS] 会话 %s 丢弃过期 page (seq=%d)", c.SessionID, payload.RequestSeq)
			return nil, false
		}
		body, err := c.surface.BodyHTML()
		if err != nil {
			log.Printf("[WS] ⚠️ 会话 %s 渲染失败: %v", c.SessionID, err)
			return nil, false
		}
		payload.Body = string(body)
		msg.Payload, _ = json.Marshal(payload)

	case TypeError, TypeEndOfData:
		if !c.surface.Observe(RequestSeqOf(msg)) {
			return nil, false
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ReadPump 负责读命令和处理心跳 Pong，返回时连接已关闭
func (c *Client) ReadPump() {
	defer func() {
		close(c.stop)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))

	// 收到 Pong 时重置读超时
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] 会话 %s 连接异常关闭: %v", c.SessionID, err)
			}
			return
		}

		// 收到消息也重置读超时
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || !msg.Type.IsCommand() {
			// 协议问题内部处理，不展示给用户
			log.Printf("[WS] ⚠️ 会话 %s 收到无效消息，忽略", c.SessionID)
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			log.Printf("[WS] ⚠️ 会话 %s 命令过于频繁，丢弃 %s", c.SessionID, msg.Type)
			continue
		}

		c.channel.SendToController(msg)
	}
}
