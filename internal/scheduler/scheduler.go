package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/newsdigest/internal/collector"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	sources []collector.Source
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New 每个数据源注册一个 cron 任务，按 loc 解析 spec；同一任务上一轮未结束时跳过本轮
func New(spec string, loc *time.Location, runner *Runner, sources []collector.Source, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log.Named("cron")}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		runner:  runner,
		sources: sources,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, src := range sources {
		src := src
		if _, err := c.AddFunc(spec, func() { s.runner.RunSource(s.ctx, src) }); err != nil {
			cancel()
			return nil, fmt.Errorf("add cron job %q for %s: %w", spec, src.Code, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("cron job scheduled", zap.Int("entry", int(e.ID)), zap.Time("next", e.Next))
	}
}

// Stop 取消正在进行的运行并等待其返回
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce(ctx context.Context) []RunResult {
	return s.runner.RunAll(ctx, s.sources)
}

// cronLogger 把 cron 内部日志转到 zap
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, zap.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
