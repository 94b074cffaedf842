// Package security 为每个视图会话生成渲染沙箱策略：内容安全策略 + 会话随机令牌。
package security

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// TokenLength 令牌长度
	TokenLength = 32
	// tokenAlphabet 字母数字字符集
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// maxAttempts 碰撞时重试次数
	maxAttempts = 8
)

// Policy 单个会话的渲染策略
type Policy struct {
	Token     string // 只有带这个 nonce 的脚本允许执行
	AssetPath string // 样式表只允许从这个本地打包路径加载，例如 /assets/
}

// ContentSecurityPolicy 生成 Content-Security-Policy 头，origin 为宿主地址（如 http://127.0.0.1:8080）
// 默认禁止一切网络/图片/脚本来源；样式只允许打包资源；脚本只允许带 nonce 的；
// 唯一允许的连接是回到宿主的 ViewChannel websocket
func (p Policy) ContentSecurityPolicy(origin string) string {
	origin = strings.TrimRight(origin, "/")
	directives := []string{
		"default-src 'none'",
		"img-src 'none'",
		fmt.Sprintf("connect-src %s", websocketOrigin(origin)),
		fmt.Sprintf("style-src %s%s", origin, p.AssetPath),
		fmt.Sprintf("script-src 'nonce-%s'", p.Token),
		"base-uri 'none'",
		"form-action 'none'",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

func websocketOrigin(origin string) string {
	switch {
	case strings.HasPrefix(origin, "https://"):
		return "wss://" + strings.TrimPrefix(origin, "https://")
	case strings.HasPrefix(origin, "http://"):
		return "ws://" + strings.TrimPrefix(origin, "http://")
	default:
		return "'none'"
	}
}

// Generator 策略生成器
// 随机源可注入，测试里可以用确定性的 reader 断言策略形状
type Generator struct {
	random    io.Reader
	assetPath string

	mu     sync.Mutex
	issued map[string]bool
}

// NewGenerator 创建生成器，random 为 nil 时使用 crypto/rand
func NewGenerator(random io.Reader, assetPath string) *Generator {
	if random == nil {
		random = rand.Reader
	}
	return &Generator{
		random:    random,
		assetPath: assetPath,
		issued:    make(map[string]bool),
	}
}

// NewPolicy 为新会话生成策略
// 新会话绝不复用其他会话的令牌（包括已关闭的会话）
func (g *Generator) NewPolicy() (Policy, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := g.token()
		if err != nil {
			return Policy{}, err
		}
		if g.issued[token] {
			continue
		}
		g.issued[token] = true
		return Policy{Token: token, AssetPath: g.assetPath}, nil
	}
	return Policy{}, fmt.Errorf("could not generate a unique session token after %d attempts", maxAttempts)
}

// token 拒绝采样，保证字符分布均匀
func (g *Generator) token() (string, error) {
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)
	for len(out) < TokenLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out), nil
}
