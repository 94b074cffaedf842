package viewchannel

import (
	"encoding/json"
	"fmt"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
)

type MessageType string

const (
	// 控制器 -> 渲染面
	TypePage      MessageType = "page"      // 一页数据
	TypeError     MessageType = "error"     // 请求失败
	TypeEndOfData MessageType = "endOfData" // 向后翻页没有更多数据

	// 渲染面 -> 控制器
	TypeNext   MessageType = "next"
	TypePrev   MessageType = "prev"
	TypeReload MessageType = "reload"
)

// IsCommand 是否为渲染面发往控制器的命令
func (t MessageType) IsCommand() bool {
	return t == TypeNext || t == TypePrev || t == TypeReload
}

// Message 统一的消息结构
type Message struct {
	Type      MessageType     `json:"type"`              // 消息类型
	Payload   json.RawMessage `json:"payload,omitempty"` // 消息内容
	Timestamp int64           `json:"ts"`                // 时间戳
}

// PagePayload page 消息的 payload
type PagePayload struct {
	Page       int          `json:"page"`
	RequestSeq int64        `json:"requestSeq"`
	Rows       []entity.Row `json:"rows"`
	Body       string       `json:"body,omitempty"` // 渲染面转义后的行体，由 websocket 桥接填写
}

// ErrorPayload error 消息的 payload
type ErrorPayload struct {
	Kind       domainErrors.Kind `json:"kind"`   // 错误类别（前端用于判断逻辑）
	Reason     string            `json:"reason"` // 给用户看的原因
	RequestSeq int64             `json:"requestSeq"`
}

// EndOfDataPayload endOfData 消息的 payload
type EndOfDataPayload struct {
	Page       int   `json:"page"` // 仍然停留的页码
	RequestSeq int64 `json:"requestSeq"`
}

func newMessage(t MessageType, payload any) Message {
	msg := Message{Type: t, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		// payload 都是本包定义的结构，序列化不会失败
		data, _ := json.Marshal(payload)
		msg.Payload = data
	}
	return msg
}

// NewPage 构造 page 消息
func NewPage(page int, requestSeq int64, rows []entity.Row) Message {
	if rows == nil {
		rows = []entity.Row{}
	}
	return newMessage(TypePage, PagePayload{Page: page, RequestSeq: requestSeq, Rows: rows})
}

// NewError 构造 error 消息
func NewError(kind domainErrors.Kind, reason string, requestSeq int64) Message {
	return newMessage(TypeError, ErrorPayload{Kind: kind, Reason: reason, RequestSeq: requestSeq})
}

// NewEndOfData 构造 endOfData 消息
func NewEndOfData(page int, requestSeq int64) Message {
	return newMessage(TypeEndOfData, EndOfDataPayload{Page: page, RequestSeq: requestSeq})
}

// NewCommand 构造 next / prev / reload 命令
func NewCommand(t MessageType) Message {
	return newMessage(t, nil)
}

// DecodePage 解析 page payload
func DecodePage(msg Message) (PagePayload, error) {
	var p PagePayload
	if msg.Type != TypePage {
		return p, fmt.Errorf("not a page message: %s", msg.Type)
	}
	err := json.Unmarshal(msg.Payload, &p)
	return p, err
}

// DecodeError 解析 error payload
func DecodeError(msg Message) (ErrorPayload, error) {
	var p ErrorPayload
	if msg.Type != TypeError {
		return p, fmt.Errorf("not an error message: %s", msg.Type)
	}
	err := json.Unmarshal(msg.Payload, &p)
	return p, err
}

// DecodeEndOfData 解析 endOfData payload
func DecodeEndOfData(msg Message) (EndOfDataPayload, error) {
	var p EndOfDataPayload
	if msg.Type != TypeEndOfData {
		return p, fmt.Errorf("not an endOfData message: %s", msg.Type)
	}
	err := json.Unmarshal(msg.Payload, &p)
	return p, err
}

// RequestSeqOf 控制器发出的消息都带 requestSeq，命令消息返回 0
func RequestSeqOf(msg Message) int64 {
	var p struct {
		RequestSeq int64 `json:"requestSeq"`
	}
	if len(msg.Payload) == 0 {
		return 0
	}
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return 0
	}
	return p.RequestSeq
}
