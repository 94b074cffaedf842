// Package viewchannel 实现控制器与渲染面之间的双向异步消息协议。
//
// 每个方向严格按发送顺序投递；没有持久化也没有重试，缓冲区满时丢弃的消息只是
// 一个静默的空操作，渲染面保持上一次绘制的状态。
package viewchannel

import (
	"log"
	"sync"
)

// DefaultBuffer 每个方向的默认缓冲大小
const DefaultBuffer = 64

// Channel 一个视图会话的消息通道
type Channel struct {
	toSurface    chan Message
	toController chan Message

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewChannel 创建通道
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Channel{
		toSurface:    make(chan Message, buffer),
		toController: make(chan Message, buffer),
		done:         make(chan struct{}),
	}
}

// SendToSurface 控制器 -> 渲染面，不阻塞；返回 false 表示消息被丢弃
func (c *Channel) SendToSurface(msg Message) bool {
	return c.send(c.toSurface, msg, "surface")
}

// SendToController 渲染面 -> 控制器，不阻塞；返回 false 表示消息被丢弃
func (c *Channel) SendToController(msg Message) bool {
	if !msg.Type.IsCommand() {
		log.Printf("[Channel] ⚠️ 忽略非命令消息: %s", msg.Type)
		return false
	}
	return c.send(c.toController, msg, "controller")
}

func (c *Channel) send(ch chan Message, msg Message, side string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case ch <- msg:
		return true
	default:
		// 缓冲区满，静默丢弃
		log.Printf("[Channel] ⚠️ 发往 %s 的 %s 消息被丢弃（缓冲区已满）", side, msg.Type)
		return false
	}
}

// Outbound 渲染面读取端
func (c *Channel) Outbound() <-chan Message { return c.toSurface }

// Inbound 控制器读取端
func (c *Channel) Inbound() <-chan Message { return c.toController }

// Done 通道关闭信号
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close 关闭通道，可重复调用
// 数据 chan 不关闭，读取方通过 Done 退出，避免并发 send 时 panic
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
