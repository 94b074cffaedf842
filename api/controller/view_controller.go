package controller

import (
	"bytes"
	"log"
	"net/http"

	"sheetview-go-server/internal/surface"
	"sheetview-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// ViewController 渲染面页面
type ViewController struct {
	viewer *usecase.ViewerUseCase
}

// NewViewController 创建 ViewController 实例
func NewViewController(viewer *usecase.ViewerUseCase) *ViewController {
	return &ViewController{viewer: viewer}
}

// ShowView 输出会话的渲染面页面，带会话专属的内容安全策略
// GET /view/:id
func (vc *ViewController) ShowView(c *gin.Context) {
	page, err := vc.viewer.ViewPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := surface.RenderView(&buf, page); err != nil {
		log.Printf("[View] ❌ 会话 %s 页面渲染失败: %v", page.SessionID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "页面渲染失败"})
		return
	}

	policy, err := vc.viewer.Policy(page.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Security-Policy", policy.ContentSecurityPolicy(requestOrigin(c.Request)))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// requestOrigin 宿主地址，反向代理时看 X-Forwarded-Proto
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
