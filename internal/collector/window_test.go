package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindowBoundaryIsInclusive(t *testing.T) {
	loc := seoul()
	now := kstTime(2025, 7, 18, 15, 0)
	w := Window{Policy: WindowRolling, Span: 24 * time.Hour}

	exact := PublishedAt{Time: now.Add(-24 * time.Hour)}
	assert.True(t, w.Includes(exact, now, loc), "item at exactly now-24h is included")

	earlier := PublishedAt{Time: now.Add(-24*time.Hour - time.Second)}
	assert.False(t, w.Includes(earlier, now, loc), "one second earlier is excluded")

	assert.True(t, w.Includes(PublishedAt{Time: now}, now, loc))
}

func TestRollingWindowDefaultSpan(t *testing.T) {
	loc := seoul()
	now := kstTime(2025, 7, 18, 15, 0)
	w := Window{Policy: WindowRolling}
	assert.True(t, w.Start(now, loc).Equal(now.Add(-24*time.Hour)))
}

func TestRollingWindowDateOnlyFallsBackToCalendarDate(t *testing.T) {
	loc := seoul()
	now := kstTime(2025, 7, 18, 15, 0)
	w := Window{Policy: WindowRolling, Span: 24 * time.Hour}

	// 起点是 07-17 15:00，07-17 当天（无时分）按日期比较应包含
	assert.True(t, w.Includes(PublishedAt{Time: kstTime(2025, 7, 17, 0, 0), DateOnly: true}, now, loc))
	assert.False(t, w.Includes(PublishedAt{Time: kstTime(2025, 7, 16, 0, 0), DateOnly: true}, now, loc))
}

func TestCalendarDayWindow(t *testing.T) {
	loc := seoul()
	now := kstTime(2025, 7, 18, 0, 30)
	w := Window{Policy: WindowCalendarDay}

	today := PublishedAt{Time: kstTime(2025, 7, 18, 0, 0), DateOnly: true}
	yesterday := PublishedAt{Time: kstTime(2025, 7, 17, 0, 0), DateOnly: true}
	dayBefore := PublishedAt{Time: kstTime(2025, 7, 16, 0, 0), DateOnly: true}
	tomorrow := PublishedAt{Time: kstTime(2025, 7, 19, 0, 0), DateOnly: true}

	assert.True(t, w.Includes(today, now, loc))
	assert.True(t, w.Includes(yesterday, now, loc))
	assert.False(t, w.Includes(dayBefore, now, loc))
	assert.False(t, w.Includes(tomorrow, now, loc))

	assert.True(t, w.Start(now, loc).Equal(kstTime(2025, 7, 17, 0, 0)))
}

func TestCalendarDayWindowAcrossYear(t *testing.T) {
	loc := seoul()
	now := kstTime(2026, 1, 1, 9, 0)
	w := Window{Policy: WindowCalendarDay}

	pub, err := ParseDate(FormatMonthDot, "12.31", "", now, loc)
	if assert.NoError(t, err) {
		assert.True(t, w.Includes(pub, now, loc), "12.31 seen on Jan 1 is yesterday")
	}
}

func TestCalendarDayUsesSourceZone(t *testing.T) {
	loc := seoul()
	// UTC 7 月 17 日 16:00 = KST 7 月 18 日 01:00
	now := time.Date(2025, 7, 17, 16, 0, 0, 0, time.UTC)
	w := Window{Policy: WindowCalendarDay}

	assert.True(t, w.Includes(PublishedAt{Time: kstTime(2025, 7, 18, 0, 0), DateOnly: true}, now, loc))
	assert.False(t, w.Includes(PublishedAt{Time: kstTime(2025, 7, 16, 0, 0), DateOnly: true}, now, loc))
}
