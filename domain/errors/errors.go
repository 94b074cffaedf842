package errors

import (
	"errors"
	"fmt"
)

// ================= 业务领域错误定义 =================
// 所有业务逻辑相关的错误统一在此定义，避免跨包重复定义

// Kind 错误类别，前端和 HTTP 层根据 Kind 判断，而不是匹配 Message 字符串
type Kind string

const (
	KindSelectionCancelled    Kind = "SelectionCancelled"
	KindUnsupportedFormat     Kind = "UnsupportedFormat"
	KindFileNotFound          Kind = "FileNotFound"
	KindParseError            Kind = "ParseError"
	KindSheetNotFound         Kind = "SheetNotFound"
	KindIOError               Kind = "IOError"
	KindTimeout               Kind = "Timeout"
	KindProviderLaunchError   Kind = "ProviderLaunchError"
	KindProviderProtocolError Kind = "ProviderProtocolError"
	KindProviderExitNonZero   Kind = "ProviderExitNonZero"
	KindInternal              Kind = "Internal"
)

// ErrSessionNotFound 会话不存在（已关闭或从未创建）
var ErrSessionNotFound = errors.New("view session not found")

// ErrSessionClosed 会话已关闭，控制器不再接受命令
var ErrSessionClosed = errors.New("view session closed")

// ErrSurfaceAttached 会话已经有一个渲染面连接
var ErrSurfaceAttached = errors.New("render surface already attached")

// ErrInvalidToken 会话令牌不匹配
var ErrInvalidToken = errors.New("invalid session token")

// ErrHistoryDisabled 未配置数据库，浏览历史不可用
var ErrHistoryDisabled = errors.New("view history disabled")

// ErrRecordNotFound 历史记录不存在
var ErrRecordNotFound = errors.New("view record not found")

// ProviderError 数据提供者边界上的错误
// Reason 是给用户看的原因，提供者的 stderr 原样放进来
type ProviderError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError 创建 ProviderError
func NewProviderError(kind Kind, reason string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Reason: reason, Err: err}
}

// Cancelled 用户关闭了文件/工作表选择
func Cancelled() *ProviderError {
	return NewProviderError(KindSelectionCancelled, "no file or sheet selected", nil)
}

// KindOf 提取错误类别，非 ProviderError 归为 Internal
func KindOf(err error) Kind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// ReasonOf 提取可展示的原因
func ReasonOf(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsUserVisible 只有提供者产生的失败和取消才展示给用户
func IsUserVisible(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
