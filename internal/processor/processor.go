package processor

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/LJTian/newsdigest/internal/collector"
)

// Article 最终输出给摘要邮件 / API 的文章，创建后不再修改
type Article struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary"`
	Date        string    `json:"date"`
	PublishedAt time.Time `json:"publishedAt"`
	DateOnly    bool      `json:"dateOnly"`
}

// Assembler 补全链接、清理文本并按发布时间倒序排列
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Process 输入需保持页面上的先后顺序：发布时间相同的文章按输入顺序排列。
// 同一轮中重复出现的链接（翻页时列表前移导致）只保留第一次。
func (p *Assembler) Process(items []collector.NewsItem) []Article {
	out := make([]Article, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		link, err := ResolveLink(it.Origin, it.Href)
		if err != nil {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		out = append(out, Article{
			Source:      it.Source,
			Title:       title,
			Link:        link,
			Summary:     strings.TrimSpace(it.Summary),
			Date:        it.PublishedAt.String(),
			PublishedAt: it.PublishedAt.Time,
			DateOnly:    it.PublishedAt.DateOnly,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

var errEmptyHref = errors.New("empty href")

// ResolveLink 已带 http(s) scheme 的链接原样返回；相对链接（/path、//host/path、path）基于 origin 补全
func ResolveLink(origin, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errEmptyHref
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		return href, nil
	}

	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("origin %q is not absolute", origin)
	}
	return base.ResolveReference(u).String(), nil
}
