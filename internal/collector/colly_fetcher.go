package collector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultRequestTimeout = 10 * time.Second

// CollyFetcher 基于 colly 的抓取实现。
// 每次 Fetch 从 base 克隆出新的 collector，克隆共享底层 http backend（包括 cookie jar），
// 因此同一个 CollyFetcher 上的多次请求处于同一会话中。不做重试。
type CollyFetcher struct {
	base *colly.Collector
}

// NewCollyFetcher 创建一个新会话，timeout <= 0 时使用 10 秒
func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)
	return &CollyFetcher{base: c}
}

func (f *CollyFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	target, err := req.target()
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	c := f.base.Clone()

	var (
		resp   *Response
		status int
		reqErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		resp = &Response{Status: r.StatusCode, Body: append([]byte(nil), r.Body...)}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	hdr := http.Header{}
	for k, v := range req.Headers {
		hdr.Set(k, v)
	}

	if err := c.Request(http.MethodGet, target, nil, nil, hdr); err != nil {
		return nil, &FetchError{URL: target, Status: status, Err: err}
	}
	if reqErr != nil {
		return nil, &FetchError{URL: target, Status: status, Err: reqErr}
	}
	if resp == nil {
		if ctx.Err() != nil {
			return nil, &FetchError{URL: target, Err: ctx.Err()}
		}
		return nil, &FetchError{URL: target, Status: status, Err: errors.New("empty response")}
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &FetchError{URL: target, Status: resp.Status, Err: errors.New(http.StatusText(resp.Status))}
	}
	return resp, nil
}
