package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sheetview-go-server/bootstrap"
	"sheetview-go-server/domain/entity"

	"github.com/joho/godotenv"
)

func main() {
	// 命令行参数
	force := flag.Bool("force", false, "跳过确认提示，强制执行")
	truncate := flag.Bool("truncate", false, "使用 TRUNCATE 清空整张表（会重置自增ID）")
	olderThan := flag.Duration("older-than", 0, "只删除打开时间早于该时长的记录，例如 720h；0 表示全部")
	flag.Parse()

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env 文件，使用系统环境变量")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("❌ DATABASE_URL 环境变量未设置")
	}

	if *truncate && *olderThan > 0 {
		log.Fatal("❌ -truncate 和 -older-than 不能同时使用")
	}

	// 连接数据库
	db := bootstrap.NewDatabase(dsn)
	table := tableName(db.NamingStrategy.TableName("ViewRecord"))

	// 确认提示
	if !*force {
		if *olderThan > 0 {
			fmt.Printf("⚠️  将删除 %s 中 %s 之前打开的浏览记录\n", table, time.Now().Add(-*olderThan).Format(time.RFC3339))
		} else {
			fmt.Printf("⚠️  警告：将删除 %s 中的所有浏览记录！\n", table)
		}

		fmt.Print("\n确认执行？(yes/no): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input != "yes" && input != "y" {
			fmt.Println("❌ 操作已取消")
			return
		}
	}

	fmt.Println("\n🚀 开始清理...")

	switch {
	case *truncate:
		if err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", table)).Error; err != nil {
			log.Fatalf("❌ 清空表 %s 失败: %v", table, err)
		}
		log.Printf("✅ 已清空表: %s", table)

	default:
		query := db.Where("1 = 1")
		if *olderThan > 0 {
			query = db.Where("opened_at < ?", time.Now().Add(-*olderThan))
		}
		result := query.Delete(&entity.ViewRecord{})
		if result.Error != nil {
			log.Fatalf("❌ 删除浏览记录失败: %v", result.Error)
		}
		log.Printf("✅ 已删除 %d 条浏览记录", result.RowsAffected)
	}

	fmt.Println("\n🎉 清理完成！")
}

// tableName 只允许预期的表名出现在拼接的 SQL 里
func tableName(name string) string {
	if name != "view_records" {
		log.Fatalf("❌ 意外的表名: %s", name)
	}
	return name
}
