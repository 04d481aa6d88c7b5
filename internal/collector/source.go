package collector

import (
	"net/url"
	"strconv"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:115.0) Gecko/20100101 Firefox/115.0"

// Selectors 描述列表页结构：Container > Item 为条目节点，其余选择器在条目内部查找
type Selectors struct {
	Container string
	Item      string

	// Link 取 href 的元素；Title 取文本的元素，二者可以相同
	Link    string
	Title   string
	Summary string
	Date    string
	// Year 可选：年份单独放在另一个节点时使用（FormatMonthDotYear）
	Year string

	// SummaryOptional 为 false 时缺少摘要节点的条目会被跳过
	SummaryOptional bool
	// MaxItems > 0 时每页只看前 N 个条目节点
	MaxItems int
}

// Source 一个数据源的全部差异化配置，采集流程本身对所有数据源相同
type Source struct {
	Code string
	// Name 用于邮件标题
	Name string

	ListURL string
	// WarmupURL 非空时先请求一次（通常是首页），用于拿到 cookie
	WarmupURL string
	// Origin 相对链接的补全前缀，例如 https://www.aitimes.com
	Origin  string
	Headers map[string]string
	Params  url.Values

	// PageParam 为空表示不分页
	PageParam string
	Pages     int

	Selectors  Selectors
	DateFormat DateFormat
	Window     Window
	Location   *time.Location
}

// Loc 返回数据源所在时区，未配置时为 KST
func (s Source) Loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return seoul()
}

// PageCount 实际需要抓取的页数
func (s Source) PageCount() int {
	if s.PageParam == "" || s.Pages <= 0 {
		return 1
	}
	return s.Pages
}

// WithPages 返回覆盖了页数的副本，不分页的数据源保持不变
func (s Source) WithPages(n int) Source {
	if s.PageParam != "" && n > 0 {
		s.Pages = n
	}
	return s
}

// pageRequest 第 page 页（从 1 开始）的请求
func (s Source) pageRequest(page int) Request {
	params := url.Values{}
	for k, vs := range s.Params {
		params[k] = append([]string(nil), vs...)
	}
	if s.PageParam != "" {
		params.Set(s.PageParam, strconv.Itoa(page))
	}
	return Request{URL: s.ListURL, Params: params, Headers: s.Headers}
}

// AITimes 人工智能新闻：MM-DD HH:MM，滚动 24 小时窗口，默认抓前 2 页
func AITimes() Source {
	return Source{
		Code:      "aitimes",
		Name:      "AITimes",
		ListURL:   "https://www.aitimes.com/news/articleList.html?view_type=sm",
		WarmupURL: "https://www.aitimes.com/",
		Origin:    "https://www.aitimes.com",
		Headers: map[string]string{
			"User-Agent":                browserUserAgent,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "ko,en-US;q=0.7,en;q=0.3",
			"Referer":                   "https://www.aitimes.com/",
			"Upgrade-Insecure-Requests": "1",
		},
		Params:    url.Values{"view_type": {"sm"}},
		PageParam: "page",
		Pages:     2,
		Selectors: Selectors{
			Container: "ul.altlist-webzine",
			Item:      "li.altlist-webzine-item",
			Link:      "h2.altlist-subject a",
			Title:     "h2.altlist-subject a",
			Summary:   "p.altlist-summary",
			Date:      "div.altlist-info-item:last-child",
		},
		DateFormat: FormatMonthDayTime,
		Window:     Window{Policy: WindowRolling, Span: 24 * time.Hour},
		Location:   seoul(),
	}
}

// MirakleAI 매일경제 미라클AI：MM.DD，只有日期，按“今天/昨天”过滤，只看前 20 条
func MirakleAI() Source {
	return Source{
		Code:    "mirakleai",
		Name:    "미라클AI",
		ListURL: "https://www.mk.co.kr/mirakleai",
		Origin:  "https://www.mk.co.kr",
		Headers: map[string]string{
			"User-Agent":      browserUserAgent,
			"Accept-Language": "ko,en-US;q=0.7,en;q=0.3",
			"Referer":         "https://www.mk.co.kr/mirakleai",
		},
		Selectors: Selectors{
			Container:       ".latest_news_list",
			Item:            "li.news_node",
			Link:            "a",
			Title:           ".txt_area .tit",
			Summary:         ".txt_area .desc",
			Date:            ".time_area span",
			SummaryOptional: true,
			MaxItems:        20,
		},
		DateFormat: FormatMonthDot,
		Window:     Window{Policy: WindowCalendarDay},
		Location:   seoul(),
	}
}

// Builtin 内置数据源
func Builtin() []Source {
	return []Source{AITimes(), MirakleAI()}
}

// Lookup 按 code 查找内置数据源
func Lookup(code string) (Source, bool) {
	for _, s := range Builtin() {
		if s.Code == code {
			return s, true
		}
	}
	return Source{}, false
}

func seoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		// 系统缺少时区数据库时回退到固定 UTC+9，韩国没有夏令时
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
