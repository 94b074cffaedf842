package bootstrap

import (
	"log"

	"github.com/clerk/clerk-sdk-go/v2"
)

// InitClerk 配置了密钥时启用 Clerk，返回是否启用
// 本地单机查看时可以不配置，/api 不做认证
func InitClerk(secret string) bool {
	if secret == "" {
		log.Println("⚠️ 未配置 CLERK_SECRET_KEY，/api 不启用认证")
		return false
	}
	clerk.SetKey(secret)

	log.Println("Clerk初始化成功")
	return true
}
