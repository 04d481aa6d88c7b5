// Package app 组装各命令共用的运行组件
package app

import (
	"context"
	"fmt"

	"github.com/LJTian/newsdigest/internal/collector"
	"github.com/LJTian/newsdigest/internal/config"
	"github.com/LJTian/newsdigest/internal/coordination"
	"github.com/LJTian/newsdigest/internal/digest"
	"github.com/LJTian/newsdigest/internal/mailer"
	"github.com/LJTian/newsdigest/internal/scheduler"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config  *config.Config
	Sources []collector.Source
	Runner  *scheduler.Runner
	Log     *zap.Logger

	redis *redis.Client
}

// SelectSources 按配置顺序返回启用的内置数据源，并应用列表页数
func SelectSources(codes []string, pages int) ([]collector.Source, error) {
	out := make([]collector.Source, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		src, ok := collector.Lookup(code)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", code)
		}
		out = append(out, src.WithPages(pages))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no source enabled")
	}
	return out, nil
}

// New Redis 不可用时降级为无锁运行；发信配置不全时只采集不发送
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	sources, err := SelectSources(cfg.Sources, cfg.ListingPages)
	if err != nil {
		return nil, err
	}

	var sender digest.Sender
	if cfg.Mail.Enabled() {
		sender = mailer.NewSMTPSender(cfg.Mail)
	}
	svc := digest.NewService(sender, cfg.Mail.Recipient, cfg.Mail.Missing(), log)

	a := &App{Config: cfg, Sources: sources, Log: log}

	var opts []scheduler.Option
	if cfg.RedisAddr != "" {
		rdb, err := coordination.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, run lock disabled", zap.Error(err))
		} else {
			a.redis = rdb
			opts = append(opts, scheduler.WithLocker(coordination.NewRunLock(rdb, cfg.RunLockTTL)))
		}
	}

	timeout := cfg.RequestTimeout
	a.Runner = scheduler.NewRunner(func() collector.Fetcher {
		return collector.NewCollyFetcher(timeout)
	}, svc, log, opts...)
	return a, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.Log.Sync()
}
