package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/newsdigest/internal/api"
	"github.com/LJTian/newsdigest/internal/app"
	"github.com/LJTian/newsdigest/internal/config"
	"github.com/LJTian/newsdigest/internal/logger"
	"github.com/LJTian/newsdigest/internal/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("init app failed", zap.Error(err))
	}
	defer a.Close()

	// 每个数据源一个定时任务，默认每天 08:00（TIMEZONE）
	s, err := scheduler.New(cfg.CronSpec, cfg.Location(), a.Runner, a.Sources, log)
	if err != nil {
		log.Fatal("init scheduler failed", zap.Error(err))
	}
	s.Start()
	defer s.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	apiServer := api.NewServer(a.Runner, a.Sources, log)
	apiServer.RegisterRoutes(r, cfg.BasicAuthUser, cfg.BasicAuthPass)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("starting api server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
}
