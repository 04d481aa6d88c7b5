package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat 列表页日期文本的格式，按数据源配置选择
type DateFormat int

const (
	// FormatMonthDayTime "07-18 09:30"，年份取当前年
	FormatMonthDayTime DateFormat = iota
	// FormatMonthDot "07.18"，只有日期，年份取当前年
	FormatMonthDot
	// FormatMonthDotYear "07.18" + 单独的年份节点 "2025"
	FormatMonthDotYear
	// FormatEmbeddedMonthDot 任意文本中出现的第一个 "M.D"（日后可带 "."，可带 "HH:MM"），如 "입력 07.18. 09:30"
	FormatEmbeddedMonthDot
	// FormatRelative "방금" / "5분 전" / "3시간 전" / "2일 전" / "어제"
	FormatRelative
)

func (f DateFormat) String() string {
	switch f {
	case FormatMonthDayTime:
		return "MM-DD HH:MM"
	case FormatMonthDot:
		return "MM.DD"
	case FormatMonthDotYear:
		return "MM.DD+YYYY"
	case FormatEmbeddedMonthDot:
		return "*MM.DD*"
	case FormatRelative:
		return "relative"
	default:
		return "unknown"
	}
}

const (
	layoutDateTime = "2006-01-02 15:04"
	layoutDate     = "2006-01-02"
)

// PublishedAt 发布时间。DateOnly 为 true 时 Time 是当天 00:00（数据源时区），只有日期部分有意义
type PublishedAt struct {
	Time     time.Time
	DateOnly bool
}

// String 有时间时为 "2006-01-02 15:04"，只有日期时为 "2006-01-02"
func (p PublishedAt) String() string {
	if p.DateOnly {
		return p.Time.Format(layoutDate)
	}
	return p.Time.Format(layoutDateTime)
}

// DateError 单条日期无法解析，调用方记录后跳过该条目
type DateError struct {
	Raw    string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("unparseable date %q: %s", e.Raw, e.Reason)
}

var (
	reMonthDayTime = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
	reMonthDot     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)
	reYear         = regexp.MustCompile(`(\d{4})`)
	reFullDot      = regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})(?:\.?\s+(\d{1,2}):(\d{2}))?`)
	reEmbeddedDot  = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2})\.(\d{1,2})\.?(?:\s+(\d{1,2}):(\d{2}))?(?:[^\d.:]|$)`)
	reMinutesAgo   = regexp.MustCompile(`(\d+)\s*분\s*전`)
	reHoursAgo     = regexp.MustCompile(`(\d+)\s*시간\s*전`)
	reDaysAgo      = regexp.MustCompile(`(\d+)\s*일\s*전`)
)

// ParseDate 把列表页上的日期文本转换成数据源时区下的绝对时间。
// yearText 只在 FormatMonthDotYear 下使用。解析失败返回 *DateError。
func ParseDate(format DateFormat, raw, yearText string, now time.Time, loc *time.Location) (PublishedAt, error) {
	if loc == nil {
		loc = seoul()
	}
	now = now.In(loc)
	text := strings.TrimSpace(raw)
	if text == "" {
		return PublishedAt{}, &DateError{Raw: raw, Reason: "empty"}
	}

	switch format {
	case FormatMonthDayTime:
		m := reMonthDayTime.FindStringSubmatch(text)
		if m == nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: "want MM-DD HH:MM"}
		}
		return impliedYear(raw, now, loc, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), false)

	case FormatMonthDot:
		m := reMonthDot.FindStringSubmatch(text)
		if m == nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: "want MM.DD"}
		}
		return impliedYear(raw, now, loc, atoi(m[1]), atoi(m[2]), 0, 0, true)

	case FormatMonthDotYear:
		m := reMonthDot.FindStringSubmatch(text)
		if m == nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: "want MM.DD"}
		}
		y := reYear.FindStringSubmatch(yearText)
		if y == nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: fmt.Sprintf("missing year (got %q)", yearText)}
		}
		t, err := buildTime(atoi(y[1]), atoi(m[1]), atoi(m[2]), 0, 0, loc)
		if err != nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: err.Error()}
		}
		return PublishedAt{Time: t, DateOnly: true}, nil

	case FormatEmbeddedMonthDot:
		// 带完整年份的 "2025.07.18" 优先，避免把 "25.07" 误认为月日
		if m := reFullDot.FindStringSubmatch(text); m != nil {
			hour, minute, dateOnly := optionalClock(m[4], m[5])
			t, err := buildTime(atoi(m[1]), atoi(m[2]), atoi(m[3]), hour, minute, loc)
			if err != nil {
				return PublishedAt{}, &DateError{Raw: raw, Reason: err.Error()}
			}
			return PublishedAt{Time: t, DateOnly: dateOnly}, nil
		}
		m := reEmbeddedDot.FindStringSubmatch(text)
		if m == nil {
			return PublishedAt{}, &DateError{Raw: raw, Reason: "no M.D pattern"}
		}
		hour, minute, dateOnly := optionalClock(m[3], m[4])
		return impliedYear(raw, now, loc, atoi(m[1]), atoi(m[2]), hour, minute, dateOnly)

	case FormatRelative:
		return parseRelative(raw, text, now, loc)
	}

	return PublishedAt{}, &DateError{Raw: raw, Reason: fmt.Sprintf("unsupported format %d", format)}
}

// impliedYear 年份未给出时按当前年构造，再做跨年修正
func impliedYear(raw string, now time.Time, loc *time.Location, month, day, hour, minute int, dateOnly bool) (PublishedAt, error) {
	t, err := buildTime(now.Year(), month, day, hour, minute, loc)
	if err != nil {
		return PublishedAt{}, &DateError{Raw: raw, Reason: err.Error()}
	}
	return PublishedAt{Time: correctYearBoundary(t, now), DateOnly: dateOnly}, nil
}

// correctYearBoundary 一月份看到的十二月条目如果落在未来，说明它属于上一年。
// 只在 “结果晚于 now && now 是一月 && 条目是十二月” 时生效，其他未来时间保持原样。
func correctYearBoundary(t, now time.Time) time.Time {
	if t.After(now) && now.Month() == time.January && t.Month() == time.December {
		return t.AddDate(-1, 0, 0)
	}
	return t
}

// buildTime 构造时间并拒绝 time.Date 会自动进位的非法日期（如 02-30、13 月）
func buildTime(year, month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("no such date %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

func parseRelative(raw, text string, now time.Time, loc *time.Location) (PublishedAt, error) {
	switch {
	case strings.HasPrefix(text, "방금"):
		return PublishedAt{Time: now}, nil
	case strings.HasPrefix(text, "어제"):
		return PublishedAt{Time: startOfDay(now, loc).AddDate(0, 0, -1), DateOnly: true}, nil
	}
	if m := reMinutesAgo.FindStringSubmatch(text); m != nil {
		return PublishedAt{Time: now.Add(-time.Duration(atoi(m[1])) * time.Minute)}, nil
	}
	if m := reHoursAgo.FindStringSubmatch(text); m != nil {
		return PublishedAt{Time: now.Add(-time.Duration(atoi(m[1])) * time.Hour)}, nil
	}
	if m := reDaysAgo.FindStringSubmatch(text); m != nil {
		return PublishedAt{Time: startOfDay(now, loc).AddDate(0, 0, -atoi(m[1])), DateOnly: true}, nil
	}
	return PublishedAt{}, &DateError{Raw: raw, Reason: "no relative offset"}
}

func optionalClock(h, m string) (hour, minute int, dateOnly bool) {
	if h == "" {
		return 0, 0, true
	}
	return atoi(h), atoi(m), false
}

// atoi 只用于正则已保证是数字的分组
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
