// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"geo-directory/internal/app"
	"geo-directory/internal/logger"
	"geo-directory/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.EnvString("API_BASE", "/api")
	addr := utils.EnvString("ADDR", ":8080")
	l.Debug("config_api_base", "base", apiBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.FromEnv(ctx, l)
	if err != nil {
		l.Error("container_init_error", "err", err)
		os.Exit(1)
	}
	defer c.Close()

	s := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(apiBase),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		l.Info("server_shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("server_shutdown_error", "err", err)
		}
	}()
	l.Info("server_listen", "addr", addr, "base", apiBase)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		return
	}
	l.Info("server_stopped")
}
