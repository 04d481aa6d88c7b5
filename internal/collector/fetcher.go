package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrFetch 列表页无法获取（网络错误、超时、非 2xx），本轮该数据源直接返回空结果
var ErrFetch = errors.New("fetch listing failed")

// Request 一次 GET 请求：Params 会合并进 URL 原有的查询参数
type Request struct {
	URL     string
	Params  url.Values
	Headers map[string]string
}

// Response 原始响应
type Response struct {
	Status int
	Body   []byte
}

// Fetcher 抽象 HTTP 抓取，同一个实例内共享 cookie（相当于一次会话）
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FetchError 带状态码的抓取错误，errors.Is(err, ErrFetch) 为 true
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s (status %d): %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// target 拼出最终 URL，Params 中的 key 覆盖 URL 上的同名参数
func (r Request) target() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", r.URL)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
