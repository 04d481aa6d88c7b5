package collector

import "time"

// WindowPolicy 时间窗口策略。两种策略并存，按数据源配置，不在运行时推断
type WindowPolicy int

const (
	// WindowRolling 发布时间 >= now-Span（边界包含）；只有日期的条目按自然日比较
	WindowRolling WindowPolicy = iota
	// WindowCalendarDay 发布日期为今天或昨天（数据源时区）
	WindowCalendarDay
)

func (p WindowPolicy) String() string {
	switch p {
	case WindowRolling:
		return "rolling"
	case WindowCalendarDay:
		return "calendar-day"
	default:
		return "unknown"
	}
}

const defaultWindowSpan = 24 * time.Hour

type Window struct {
	Policy WindowPolicy
	// Span 仅 WindowRolling 使用，<= 0 时为 24 小时
	Span time.Duration
}

// Start 窗口起点：滚动窗口为 now-Span，自然日窗口为昨天 00:00
func (w Window) Start(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	if w.Policy == WindowCalendarDay {
		return startOfDay(now, loc).AddDate(0, 0, -1)
	}
	span := w.Span
	if span <= 0 {
		span = defaultWindowSpan
	}
	return now.Add(-span)
}

// Includes 判断条目是否落在窗口内
func (w Window) Includes(p PublishedAt, now time.Time, loc *time.Location) bool {
	switch w.Policy {
	case WindowCalendarDay:
		today := startOfDay(now, loc)
		day := startOfDay(p.Time, loc)
		return day.Equal(today) || day.Equal(today.AddDate(0, 0, -1))
	default:
		start := w.Start(now, loc)
		if p.DateOnly {
			// 没有时分信息时退化为按日期比较
			return !startOfDay(p.Time, loc).Before(startOfDay(start, loc))
		}
		return !p.Time.Before(start)
	}
}
