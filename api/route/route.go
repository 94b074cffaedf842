package route

import (
	"net/http"

	"sheetview-go-server/api/controller"
	"sheetview-go-server/api/middleware"
	"sheetview-go-server/assets"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖注入结构
type Dependencies struct {
	SheetController *controller.SheetController
	ViewController  *controller.ViewController
	WSHandler       *controller.WSHandler
	AuthEnabled     bool
}

// Setup 配置所有路由
func Setup(router *gin.Engine, deps *Dependencies) {
	// --- 公开路由 ---

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "sheetview-go-server",
		})
	})

	// 渲染面静态资源（CSP 只允许从这里加载样式和脚本）
	assetFS := http.FS(assets.FS)
	router.StaticFileFS("/assets/viewer.css", "viewer.css", assetFS)
	router.StaticFileFS("/assets/viewer.js", "viewer.js", assetFS)

	// --- 渲染面 ---
	// 页面和 WebSocket 都由会话令牌保护，不走 Clerk
	router.GET("/view/:id", deps.ViewController.ShowView)
	router.GET("/ws", deps.WSHandler.HandleWS)

	// --- API 路由（配置了 Clerk 时需要 JWT）---
	api := router.Group("/api")
	api.Use(middleware.ClerkAuth(deps.AuthEnabled))
	{
		api.GET("/sheets", deps.SheetController.ListSheets)
		api.POST("/sessions", deps.SheetController.OpenSession)
		api.GET("/sessions/:id", deps.SheetController.GetSession)
		api.DELETE("/sessions/:id", deps.SheetController.CloseSession)
		api.GET("/history", deps.SheetController.History)
	}
}
