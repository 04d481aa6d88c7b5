package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/newsdigest/internal/app"
	"github.com/LJTian/newsdigest/internal/config"
	"github.com/LJTian/newsdigest/internal/logger"
	"go.uber.org/zap"
)

// 一个仅执行一轮采集与发信的命令行入口：适合手动触发或由外部 cron 调用
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

	failed := 0
	for _, res := range a.Runner.RunAll(ctx, a.Sources) {
		if res.Err != nil {
			failed++
		}
		log.Info("source finished",
			zap.String("source", res.Source),
			zap.Int("articles", res.Articles),
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("duration", res.Duration),
			zap.String("error", res.Error),
		)
	}
	if failed > 0 {
		a.Close()
		os.Exit(1)
	}
}
