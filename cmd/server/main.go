package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/bazaar-next/internal/app"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func main() {
	printStartupBanner()

	// 本地开发时从 .env 读取 SMTP / WhatsApp / 数据库等环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env failed: %v\n", err)
	}

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	checkSecret := func(name, secret string) {
		if !isWeakSecret(secret) {
			return
		}
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
		}
		stdLog.Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
	}
	checkSecret("admin_jwt.secret", cfg.AdminJWT.SecretKey)
	checkSecret("order.token_secret", cfg.Order.TokenSecret)

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化默认管理员账号
	defaultAdminUser := os.Getenv("BAZAAR_DEFAULT_ADMIN_USERNAME")
	defaultAdminPass := os.Getenv("BAZAAR_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && defaultAdminPass == "" {
		stdLog.Printf("警告: 未设置 BAZAAR_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
	} else if err := service.NewAuthService(cfg.AdminJWT, repository.NewAdminRepository(models.DB)).EnsureDefaultAdmin(defaultAdminUser, defaultAdminPass); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiYellow + ansiBold + "Bazaar Next API" + ansiReset)
	fmt.Println(ansiGreen + "cart · checkout · orders · points · notifications" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
