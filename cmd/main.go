package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheetview-go-server/api/controller"
	"sheetview-go-server/api/route"
	"sheetview-go-server/bootstrap"
	"sheetview-go-server/domain/repository"
	"sheetview-go-server/internal/pagination"
	"sheetview-go-server/internal/provider"
	"sheetview-go-server/internal/security"
	"sheetview-go-server/internal/session"
	viewRepo "sheetview-go-server/repository"
	"sheetview-go-server/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("[Server] SheetView Go Server 启动中...")

	// 加载环境变量
	env := bootstrap.LoadEnv()

	// 初始化 Clerk（可选）
	authEnabled := bootstrap.InitClerk(env.ClerkSecretKey)

	// 浏览历史（可选）
	var history repository.ViewRecordRepository
	if env.DatabaseURL != "" {
		history = viewRepo.NewViewRecordRepository(bootstrap.NewDatabase(env.DatabaseURL))
	} else {
		log.Println("[Server] ⚠️ 未配置 DATABASE_URL，浏览历史不可用")
	}

	// 数据提供者
	ds, err := provider.NewExecDataSource(env.ProviderCmd)
	if err != nil {
		log.Fatalf("[Server] ❌ 数据提供者配置错误: %v", err)
	}

	// 会话目录
	registry := session.NewRegistry(ds, security.NewGenerator(nil, "/assets/"), history, session.Config{
		Pagination: pagination.Config{
			PageSize: env.PageSize,
			Timeout:  env.ProviderTimeout,
			MaxPages: env.MaxPages,
			RowWidth: env.RowWidthPolicy,
		},
		IdleGrace:    env.SessionIdleGrace,
		MaxCellChars: env.MaxCellChars,
	})

	// 依赖注入 - UseCase 层
	viewer := usecase.NewViewerUseCase(registry)

	// 依赖注入 - Controller 层
	sheetController := controller.NewSheetController(viewer)
	viewController := controller.NewViewController(viewer)
	wsHandler := controller.NewWSHandler(registry, env.AllowedOrigins, env.WSCommandRate, env.WSCommandBurst)

	// 配置 Gin 路由
	router := gin.Default()

	// CORS 配置（只影响 /api，渲染面页面同源）
	router.Use(cors.New(cors.Config{
		AllowOrigins:     append([]string{"http://localhost:3000", "http://localhost:5173"}, env.AllowedOrigins...),
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 设置路由
	route.Setup(router, &route.Dependencies{
		SheetController: sheetController,
		ViewController:  viewController,
		WSHandler:       wsHandler,
		AuthEnabled:     authEnabled,
	})

	// 启动 HTTP 服务
	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[Server] 服务已启动: http://localhost:%s", env.Port)
		log.Printf("[Server] API 端点:")
		log.Printf("   GET    /health                   - 健康检查")
		log.Printf("   GET    /api/sheets?path=xxx      - 列出工作表")
		log.Printf("   POST   /api/sessions             - 打开视图")
		log.Printf("   GET    /api/sessions/:id         - 会话状态")
		log.Printf("   DELETE /api/sessions/:id         - 关闭视图")
		log.Printf("   GET    /api/history              - 浏览历史")
		log.Printf("   GET    /view/:id                 - 渲染面页面")
		log.Printf("   GET    /ws?session=xxx&token=xxx - ViewChannel 连接")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] 服务启动失败: %v", err)
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] 收到停机信号，正在优雅关闭...")

	// 先关闭会话：渲染面收到关闭帧，浏览历史补全
	registry.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[Server] 服务强制关闭: %v", err)
	}

	log.Println("[Server] 服务已安全停止")
}
