package bootstrap

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"sheetview-go-server/internal/pagination"
	"sheetview-go-server/internal/session"

	"github.com/joho/godotenv"
)

// Env 环境变量配置结构
type Env struct {
	Port             string                    // 服务端口
	ProviderCmd      string                    // 数据提供者命令行
	PageSize         int                       // 每页行数
	ProviderTimeout  time.Duration             // 单次提供者调用超时
	MaxPages         int                       // 页码上限，0 不限制
	RowWidthPolicy   pagination.RowWidthPolicy // 行宽策略
	MaxCellChars     int                       // 单元格截断长度，0 不截断
	SessionIdleGrace time.Duration             // 渲染面断开后的会话保留时间
	WSCommandRate    float64                   // 每秒允许的命令数
	WSCommandBurst   int                       // 命令突发上限
	AllowedOrigins   []string                  // 额外允许的跨域来源
	DatabaseURL      string                    // PostgreSQL 连接字符串（可选，启用浏览历史）
	ClerkSecretKey   string                    // Clerk API 密钥（可选，启用 /api 认证）
}

// LoadEnv 加载环境变量
// 开发环境从 .env 文件加载，生产环境从系统环境变量读取
func LoadEnv() *Env {
	// 尝试加载 .env 文件（生产环境可能没有）
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env 文件未找到，将使用系统环境变量")
	}

	env, err := ParseEnv(os.Getenv)
	if err != nil {
		log.Fatalf("❌ 环境变量配置错误: %v", err)
	}

	log.Printf("✅ 环境变量加载完成, 端口: %s, 提供者: %s, 每页 %d 行", env.Port, env.ProviderCmd, env.PageSize)
	return env
}

// ParseEnv 解析并校验配置，getenv 通常是 os.Getenv
func ParseEnv(getenv func(string) string) (*Env, error) {
	p := envParser{getenv: getenv}

	env := &Env{
		Port:             p.str("PORT", "8080"),
		ProviderCmd:      p.str("PROVIDER_CMD", "sheet-provider"),
		PageSize:         p.integer("PAGE_SIZE", pagination.DefaultPageSize, 1),
		ProviderTimeout:  p.duration("PROVIDER_TIMEOUT", pagination.DefaultTimeout),
		MaxPages:         p.integer("MAX_PAGES", 0, 0),
		MaxCellChars:     p.integer("MAX_CELL_CHARS", 0, 0),
		SessionIdleGrace: p.duration("SESSION_IDLE_GRACE", session.DefaultIdleGrace),
		WSCommandRate:    p.float("WS_COMMAND_RATE", 20),
		WSCommandBurst:   p.integer("WS_COMMAND_BURST", 40, 1),
		AllowedOrigins:   p.list("ALLOWED_ORIGINS"),
		DatabaseURL:      getenv("DATABASE_URL"),
		ClerkSecretKey:   getenv("CLERK_SECRET_KEY"),
	}

	policy, err := pagination.ParseRowWidthPolicy(getenv("ROW_WIDTH_POLICY"))
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("ROW_WIDTH_POLICY: %v", err))
	}
	env.RowWidthPolicy = policy

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(p.errs, "; "))
	}
	return env, nil
}

// envParser 收集所有错误，一次性报告
type envParser struct {
	getenv func(string) string
	errs   []string
}

func (p *envParser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *envParser) integer(key string, def, min int) int {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		p.errs = append(p.errs, fmt.Sprintf("%s: want an integer >= %d, got %q", key, min, raw))
		return def
	}
	return n
}

func (p *envParser) float(key string, def float64) float64 {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s: want a positive number, got %q", key, raw))
		return def
	}
	return f
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s: want a positive duration like 15s, got %q", key, raw))
		return def
	}
	return d
}

func (p *envParser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(p.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
