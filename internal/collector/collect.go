package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NewsItem 通过时间窗口的条目。Href 仍是页面上的原始值，由 processor 补全为绝对地址
type NewsItem struct {
	Source      string
	Origin      string
	Title       string
	Href        string
	Summary     string
	PublishedAt PublishedAt
}

// Stats 一轮采集的计数，用于日志
type Stats struct {
	Pages      int
	Nodes      int
	Skipped    int
	BadDates   int
	OutOfRange int
	Kept       int
}

// Collect 顺序抓取 1..N 页并逐条解析、过滤。任何一页抓取或加载失败都返回错误，
// 不返回部分结果；单条目的问题只记日志并跳过。结果保持页面上的先后顺序。
func Collect(ctx context.Context, f Fetcher, src Source, now time.Time, log *zap.Logger) ([]NewsItem, Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("source", src.Code))
	loc := src.Loc()
	now = now.In(loc)

	var stats Stats

	if src.WarmupURL != "" {
		if _, err := f.Fetch(ctx, Request{URL: src.WarmupURL, Headers: src.Headers}); err != nil {
			return nil, stats, fmt.Errorf("%s warmup: %w", src.Code, err)
		}
	}

	var items []NewsItem
	for page := 1; page <= src.PageCount(); page++ {
		resp, err := f.Fetch(ctx, src.pageRequest(page))
		if err != nil {
			return nil, stats, fmt.Errorf("%s page %d: %w", src.Code, page, err)
		}
		listing, err := ParseListing(resp.Body, src.Selectors)
		if err != nil {
			return nil, stats, fmt.Errorf("%s page %d: %w", src.Code, page, err)
		}

		stats.Pages++
		stats.Nodes += len(listing.Items) + listing.Skipped
		stats.Skipped += listing.Skipped
		log.Debug("listing page parsed",
			zap.Int("page", page),
			zap.Int("items", len(listing.Items)),
			zap.Int("skipped", listing.Skipped),
		)
		if len(listing.Items) == 0 && listing.Skipped == 0 {
			log.Warn("listing page has no item nodes, selectors may be outdated",
				zap.Int("page", page),
				zap.String("container", src.Selectors.Container),
				zap.String("item", src.Selectors.Item),
			)
		}

		for _, raw := range listing.Items {
			pub, err := ParseDate(src.DateFormat, raw.DateText, raw.YearText, now, loc)
			if err != nil {
				stats.BadDates++
				log.Warn("skip item with unparseable date",
					zap.String("raw", raw.DateText),
					zap.String("title", raw.Title),
					zap.Error(err),
				)
				continue
			}
			if !src.Window.Includes(pub, now, loc) {
				stats.OutOfRange++
				log.Debug("skip item outside window", zap.String("published", pub.String()), zap.String("title", raw.Title))
				continue
			}
			items = append(items, NewsItem{
				Source:      src.Code,
				Origin:      src.Origin,
				Title:       raw.Title,
				Href:        raw.Href,
				Summary:     raw.Summary,
				PublishedAt: pub,
			})
		}
	}

	stats.Kept = len(items)
	return items, stats, nil
}
