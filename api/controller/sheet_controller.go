package controller

import (
	"errors"
	"net/http"
	"strconv"

	"sheetview-go-server/api/middleware"
	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// --- 响应结构定义 ---

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    domainErrors.Kind `json:"kind,omitempty"`
	Details string            `json:"details,omitempty"`
}

// MessageResponse 消息响应结构
type MessageResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// OpenSessionRequest 打开视图请求体
type OpenSessionRequest struct {
	FilePath string `json:"filePath"`
	Sheet    string `json:"sheet"`
}

// --- 控制器定义 ---

// SheetController 工作表与会话 HTTP 控制器
type SheetController struct {
	viewer *usecase.ViewerUseCase
}

// NewSheetController 创建 SheetController 实例
func NewSheetController(viewer *usecase.ViewerUseCase) *SheetController {
	return &SheetController{viewer: viewer}
}

// ListSheets 列出文件中的工作表
// GET /api/sheets?path=xxx
func (sc *SheetController) ListSheets(c *gin.Context) {
	sheets, err := sc.viewer.ListSheets(c.Request.Context(), c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheets": sheets})
}

// OpenSession 打开视图会话
// POST /api/sessions
func (sc *SheetController) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "请求体格式错误", Details: err.Error()})
		return
	}

	// 未启用鉴权时 userID 不存在，记为空
	userID := c.GetString(middleware.ContextKeyUserID)
	view, err := sc.viewer.OpenView(c.Request.Context(), req.FilePath, req.Sheet, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetSession 会话状态
// GET /api/sessions/:id
func (sc *SheetController) GetSession(c *gin.Context) {
	info, err := sc.viewer.SessionInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseSession 关闭会话
// DELETE /api/sessions/:id
func (sc *SheetController) CloseSession(c *gin.Context) {
	id := c.Param("id")
	if err := sc.viewer.CloseView(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "会话已关闭", SessionID: id})
}

// History 最近打开过的视图
// GET /api/history?limit=20
func (sc *SheetController) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit 必须是正整数"})
		return
	}

	records, err := sc.viewer.History(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// respondError 按错误类别映射 HTTP 状态码
// 提供者错误把原因原样返回；其它内部错误只记录类别
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "会话不存在"})
		return
	case errors.Is(err, domainErrors.ErrSessionClosed):
		c.JSON(http.StatusGone, ErrorResponse{Error: "会话已关闭"})
		return
	case errors.Is(err, domainErrors.ErrHistoryDisabled):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "未配置数据库，浏览历史不可用"})
		return
	}

	if !domainErrors.IsUserVisible(err) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "内部错误", Kind: domainErrors.KindInternal, Details: err.Error()})
		return
	}

	kind := domainErrors.KindOf(err)
	c.JSON(StatusForKind(kind), ErrorResponse{Error: domainErrors.ReasonOf(err), Kind: kind})
}

// StatusForKind 错误类别对应的 HTTP 状态码
func StatusForKind(kind domainErrors.Kind) int {
	switch kind {
	case domainErrors.KindSelectionCancelled:
		return http.StatusBadRequest
	case domainErrors.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case domainErrors.KindFileNotFound, domainErrors.KindSheetNotFound:
		return http.StatusNotFound
	case domainErrors.KindTimeout:
		return http.StatusGatewayTimeout
	case domainErrors.KindParseError, domainErrors.KindIOError, domainErrors.KindProviderLaunchError,
		domainErrors.KindProviderProtocolError, domainErrors.KindProviderExitNonZero:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
