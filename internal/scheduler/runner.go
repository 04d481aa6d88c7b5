package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LJTian/newsdigest/internal/collector"
	"github.com/LJTian/newsdigest/internal/digest"
	"github.com/LJTian/newsdigest/internal/processor"
	"go.uber.org/zap"
)

// ErrLocked 同一数据源已有一轮在运行（本进程或其它持有运行锁的进程）
var ErrLocked = errors.New("source run already in progress")

// Locker 跨进程运行锁，可为 nil
type Locker interface {
	TryAcquire(ctx context.Context, name string) (release func(context.Context) error, ok bool, err error)
}

// Deliverer 见 digest.Service
type Deliverer interface {
	Deliver(ctx context.Context, sourceName string, articles []processor.Article, now time.Time) (digest.Outcome, error)
}

// RunResult 一轮 collect -> process -> deliver 的结果
type RunResult struct {
	Source    string          `json:"source"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Stats     collector.Stats `json:"stats"`
	Articles  int             `json:"articles"`
	Outcome   digest.Outcome  `json:"outcome,omitempty"`
	Error     string          `json:"error,omitempty"`
	Err       error           `json:"-"`
}

// Runner 负责单个数据源的一轮运行。每轮新建 Fetcher，保证会话 cookie 不跨轮共享
type Runner struct {
	newFetcher func() collector.Fetcher
	assembler  *processor.Assembler
	deliverer  Deliverer
	locker     Locker
	now        func() time.Time
	log        *zap.Logger

	mu      sync.RWMutex
	last    map[string]RunResult
	running map[string]bool
}

type Option func(*Runner)

// WithLocker 启用跨进程运行锁
func WithLocker(l Locker) Option {
	return func(r *Runner) { r.locker = l }
}

// WithClock 测试中固定当前时间
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(newFetcher func() collector.Fetcher, d Deliverer, log *zap.Logger, opts ...Option) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		newFetcher: newFetcher,
		assembler:  processor.NewAssembler(),
		deliverer:  d,
		now:        time.Now,
		log:        log,
		last:       make(map[string]RunResult),
		running:    make(map[string]bool),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Collect 抓取并整理文章，不发信
func (r *Runner) Collect(ctx context.Context, src collector.Source) ([]processor.Article, collector.Stats, error) {
	items, stats, err := collector.Collect(ctx, r.newFetcher(), src, r.now(), r.log)
	if err != nil {
		return nil, stats, err
	}
	return r.assembler.Process(items), stats, nil
}

// Preview 抓取并渲染摘要 HTML，不发信
func (r *Runner) Preview(ctx context.Context, src collector.Source) (string, int, error) {
	articles, _, err := r.Collect(ctx, src)
	if err != nil {
		return "", 0, err
	}
	html, err := digest.Render(src.Name, articles, r.now().In(src.Loc()))
	if err != nil {
		return "", 0, err
	}
	return html, len(articles), nil
}

// RunSource 完整运行一轮。抓取失败时不发信，错误写入 RunResult.Err。
// 同一数据源在本进程内同时只允许一轮（定时任务与 API 触发共用），其余返回 ErrLocked
func (r *Runner) RunSource(ctx context.Context, src collector.Source) (res RunResult) {
	log := r.log.With(zap.String("source", src.Code))
	res = RunResult{Source: src.Code, StartedAt: r.now()}
	started := time.Now()

	if !r.tryStart(src.Code) {
		log.Info("source is already running in this process, skip")
		res.Err = ErrLocked
		res.Error = res.Err.Error()
		res.Duration = time.Since(started)
		return res
	}
	defer r.finish(src.Code)

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			log.Error("run panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
		res.Duration = time.Since(started)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		r.remember(res)
	}()

	if r.locker != nil {
		release, ok, err := r.locker.TryAcquire(ctx, src.Code)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, continue without it", zap.Error(err))
		case !ok:
			log.Info("another process is running this source, skip")
			res.Err = ErrLocked
			return res
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("release run lock failed", zap.Error(err))
				}
			}()
		}
	}

	log.Info("start collect")
	articles, stats, err := r.Collect(ctx, src)
	res.Stats = stats
	if err != nil {
		log.Error("collect failed, skip sending", zap.Error(err))
		res.Err = err
		return res
	}
	res.Articles = len(articles)
	log.Info("collect done",
		zap.Int("pages", stats.Pages),
		zap.Int("nodes", stats.Nodes),
		zap.Int("bad_dates", stats.BadDates),
		zap.Int("out_of_range", stats.OutOfRange),
		zap.Int("articles", len(articles)),
	)

	res.Outcome, res.Err = r.deliverer.Deliver(ctx, src.Name, articles, r.now().In(src.Loc()))
	return res
}

// RunAll 顺序运行所有数据源，单个失败不影响其它
func (r *Runner) RunAll(ctx context.Context, sources []collector.Source) []RunResult {
	out := make([]RunResult, 0, len(sources))
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		out = append(out, r.RunSource(ctx, src))
	}
	return out
}

// LastResults 各数据源最近一次运行结果
func (r *Runner) LastResults() map[string]RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RunResult, len(r.last))
	for k, v := range r.last {
		out[k] = v
	}
	return out
}

func (r *Runner) tryStart(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[code] {
		return false
	}
	r.running[code] = true
	return true
}

func (r *Runner) finish(code string) {
	r.mu.Lock()
	delete(r.running, code)
	r.mu.Unlock()
}

func (r *Runner) remember(res RunResult) {
	r.mu.Lock()
	r.last[res.Source] = res
	r.mu.Unlock()
}
