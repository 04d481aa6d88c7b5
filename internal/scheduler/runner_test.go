package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/newsdigest/internal/collector"
	"github.com/LJTian/newsdigest/internal/digest"
	"github.com/LJTian/newsdigest/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var kst = time.FixedZone("KST", 9*60*60)

func fixedNow() time.Time {
	return time.Date(2025, 7, 18, 15, 0, 0, 0, kst)
}

// pageFetcher 按 URL 路径返回固定页面；fail 非空时所有请求都失败
type pageFetcher struct {
	body  string
	fail  error
	calls int
}

func (f *pageFetcher) Fetch(_ context.Context, req collector.Request) (*collector.Response, error) {
	f.calls++
	if f.fail != nil {
		return nil, &collector.FetchError{URL: req.URL, Err: f.fail}
	}
	return &collector.Response{Status: 200, Body: []byte(f.body)}, nil
}

type recordDeliverer struct {
	calls    int
	articles []processor.Article
	outcome  digest.Outcome
	err      error
}

func (d *recordDeliverer) Deliver(_ context.Context, _ string, articles []processor.Article, _ time.Time) (digest.Outcome, error) {
	d.calls++
	d.articles = articles
	if d.outcome == "" {
		return digest.OutcomeSent, d.err
	}
	return d.outcome, d.err
}

type fakeLocker struct {
	held     map[string]bool
	err      error
	released []string
}

func (l *fakeLocker) TryAcquire(_ context.Context, name string) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func(context.Context) error {
		l.held[name] = false
		l.released = append(l.released, name)
		return nil
	}, true, nil
}

func aitimesPage(dates ...string) string {
	var sb strings.Builder
	sb.WriteString(`<ul class="altlist-webzine">`)
	for i, d := range dates {
		fmt.Fprintf(&sb, `<li class="altlist-webzine-item">
<h2 class="altlist-subject"><a href="/news/articleView.html?idxno=%d">기사 %d</a></h2>
<p class="altlist-summary">요약</p>
<div class="altlist-info-item">%s</div></li>`, i, i, d)
	}
	sb.WriteString(`</ul>`)
	return sb.String()
}

func newTestRunner(t *testing.T, f collector.Fetcher, d Deliverer, opts ...Option) *Runner {
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	return NewRunner(func() collector.Fetcher { return f }, d, zaptest.NewLogger(t), opts...)
}

func TestRunSourceDelivers(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00", "07-16 09:00", "07-18 14:00")}
	d := &recordDeliverer{}
	r := newTestRunner(t, f, d)

	res := r.RunSource(context.Background(), collector.AITimes().WithPages(1))
	require.NoError(t, res.Err)
	assert.Equal(t, digest.OutcomeSent, res.Outcome)
	assert.Equal(t, 2, res.Articles)
	assert.Equal(t, 1, res.Stats.OutOfRange)

	require.Equal(t, 1, d.calls)
	require.Len(t, d.articles, 2)
	assert.Equal(t, "기사 2", d.articles[0].Title)
	assert.Equal(t, "https://www.aitimes.com/news/articleView.html?idxno=2", d.articles[0].Link)
	assert.Equal(t, "기사 0", d.articles[1].Title)

	last := r.LastResults()
	assert.Equal(t, 2, last["aitimes"].Articles)
}

func TestRunSourceFetchFailureNeverNotifies(t *testing.T) {
	f := &pageFetcher{fail: errors.New("dial tcp: i/o timeout")}
	d := &recordDeliverer{}
	r := newTestRunner(t, f, d)

	res := r.RunSource(context.Background(), collector.AITimes())
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, collector.ErrFetch)
	assert.Contains(t, res.Error, "i/o timeout")
	assert.Equal(t, 0, d.calls)
	assert.Equal(t, 0, res.Articles)
}

func TestRunSourceSkipsWhenLocked(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00")}
	d := &recordDeliverer{}
	l := &fakeLocker{held: map[string]bool{"aitimes": true}}
	r := newTestRunner(t, f, d, WithLocker(l))

	res := r.RunSource(context.Background(), collector.AITimes())
	assert.ErrorIs(t, res.Err, ErrLocked)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, 0, d.calls)
}

func TestRunSourceReleasesLock(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00")}
	l := &fakeLocker{held: map[string]bool{}}
	r := newTestRunner(t, f, &recordDeliverer{}, WithLocker(l))

	res := r.RunSource(context.Background(), collector.AITimes().WithPages(1))
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"aitimes"}, l.released)
	assert.False(t, l.held["aitimes"])
}

func TestRunSourceLockErrorContinues(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00")}
	d := &recordDeliverer{}
	l := &fakeLocker{err: errors.New("redis: connection refused")}
	r := newTestRunner(t, f, d, WithLocker(l))

	res := r.RunSource(context.Background(), collector.AITimes().WithPages(1))
	require.NoError(t, res.Err)
	assert.Equal(t, 1, d.calls)
}

// blockingDeliverer 对 block 指定的数据源，进入 Deliver 后通知 entered，直到 release 关闭才返回
type blockingDeliverer struct {
	block   string
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (d *blockingDeliverer) Deliver(_ context.Context, name string, _ []processor.Article, _ time.Time) (digest.Outcome, error) {
	if name != d.block {
		return digest.OutcomeNoArticles, nil
	}
	d.calls.Add(1)
	d.entered <- struct{}{}
	<-d.release
	return digest.OutcomeSent, nil
}

func TestRunSourceRejectsOverlapInProcess(t *testing.T) {
	d := &blockingDeliverer{block: "AITimes", entered: make(chan struct{}, 2), release: make(chan struct{})}
	r := NewRunner(func() collector.Fetcher {
		return &pageFetcher{body: aitimesPage("07-18 09:00")}
	}, d, nil, WithClock(fixedNow))
	src := collector.AITimes().WithPages(1)

	first := make(chan RunResult, 1)
	go func() { first <- r.RunSource(context.Background(), src) }()
	<-d.entered

	// 定时任务正在发信时 API 再次触发同一数据源
	second := r.RunSource(context.Background(), src)
	assert.ErrorIs(t, second.Err, ErrLocked)

	// 其它数据源不受影响
	other := r.RunSource(context.Background(), collector.MirakleAI())
	require.NoError(t, other.Err)

	close(d.release)
	res := <-first
	require.NoError(t, res.Err)
	assert.Equal(t, int32(1), d.calls.Load())

	// 上一轮结束后可以再次运行
	third := r.RunSource(context.Background(), src)
	require.NoError(t, third.Err)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestRunSourceDurationUsesWallClock(t *testing.T) {
	r := newTestRunner(t, &pageFetcher{body: aitimesPage("07-18 09:00")}, &recordDeliverer{})

	res := r.RunSource(context.Background(), collector.AITimes().WithPages(1))
	require.NoError(t, res.Err)
	assert.True(t, res.StartedAt.Equal(fixedNow()))
	assert.GreaterOrEqual(t, res.Duration, time.Duration(0))
	assert.Less(t, res.Duration, time.Minute)
}

type panicDeliverer struct{}

func (panicDeliverer) Deliver(context.Context, string, []processor.Article, time.Time) (digest.Outcome, error) {
	panic("boom")
}

func TestRunSourceRecoversPanic(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00")}
	r := newTestRunner(t, f, panicDeliverer{})

	res := r.RunSource(context.Background(), collector.AITimes().WithPages(1))
	require.Error(t, res.Err)
	assert.Contains(t, res.Error, "boom")
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	d := &recordDeliverer{}
	calls := 0
	r := NewRunner(func() collector.Fetcher {
		calls++
		if calls == 1 {
			return &pageFetcher{fail: errors.New("reset")}
		}
		return &pageFetcher{body: `<ul class="latest_news_list"><li class="news_node"><a href="/news/it/1"></a>
<div class="txt_area"><p class="tit">제목</p></div><div class="time_area"><span>07.18</span></div></li></ul>`}
	}, d, nil, WithClock(fixedNow))

	results := r.RunAll(context.Background(), []collector.Source{collector.AITimes(), collector.MirakleAI()})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Articles)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, "https://www.mk.co.kr/news/it/1", d.articles[0].Link)
}

func TestPreview(t *testing.T) {
	f := &pageFetcher{body: aitimesPage("07-18 09:00")}
	d := &recordDeliverer{}
	r := newTestRunner(t, f, d)

	html, n, err := r.Preview(context.Background(), collector.AITimes().WithPages(1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, html, "[2025년 07월 18일] AITimes 신규 기사")
	assert.Equal(t, 0, d.calls)
}
