package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/visitorlog/internal/config"
	"github.com/visitorlog/internal/db"
	"github.com/visitorlog/internal/handler"
	"github.com/visitorlog/internal/hub"
	"github.com/visitorlog/internal/router"
)

func main() {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	broadcaster := hub.New()
	api := handler.NewAPI(db.DB, broadcaster, cfg.SiteBaseURL)

	// 日界清扫兜底定时器：访客列表读取路径也会触发清扫，
	// 定时器保证没有任何请求时遗留记录同样会被关闭
	go runSweeper(api, cfg.SweepInterval)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

func runSweeper(api *handler.API, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		closed, err := api.Visits().ReconcilePreviousDay()
		if err != nil {
			// 清扫幂等，失败留给下个周期重试
			log.Printf("sweep previous day: %v", err)
			continue
		}
		if closed > 0 {
			log.Printf("sweep closed %d stale visits", closed)
		}
	}
}
