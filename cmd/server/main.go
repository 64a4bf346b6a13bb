package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"nl2flow/config"
	"nl2flow/internal/handler"
	"nl2flow/internal/logger"
	"nl2flow/internal/metrics"
	"nl2flow/internal/service"
)

func main() {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	// 按环境加载配置（APP_ENV=local|dev|prod）
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Default()

	ginMode := cfg.Server.Mode
	if os.Getenv("GIN_MODE") != "" {
		ginMode = os.Getenv("GIN_MODE")
	}
	gin.SetMode(ginMode)

	if err := cfg.Windmill.Validate(); err != nil {
		// 不退出：请求会得到 ConfigurationMissing 响应
		log.Warn("windmill configuration incomplete", "err", err)
	}

	m := metrics.New()
	svc := service.NewFromConfig(cfg, m)

	// 路由
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(svc, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", config.Env(), "workspace", cfg.Windmill.Workspace)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
	log.Info("server stopped")
}
