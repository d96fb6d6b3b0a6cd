package service

import (
	"math"
	"time"
)

// DateWindow 日期区间（日粒度）
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// addDays 按自然日偏移日期（不跳过周末）
func addDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// toISODate 格式化为 YYYY-MM-DD（UTC，避免本地时区漂移）
func toISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// truncateToDay 截断到日粒度（UTC）
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// partitionByWeight 按百分比权重顺序切分 [start,end]。
// 每段长度独立四舍五入后用滚动游标衔接，最后一段的终点不强制对齐 end，
// 权重之和偏离 100 时产生的漂移是接受的近似。
func partitionByWeight(start, end time.Time, weights []float64) []DateWindow {
	total := end.Sub(start)
	windows := make([]DateWindow, 0, len(weights))

	cursor := start
	for _, w := range weights {
		slice := time.Duration(math.Round(float64(total) * w / 100))
		sliceEnd := cursor.Add(slice)
		windows = append(windows, DateWindow{Start: cursor, End: sliceEnd})
		cursor = sliceEnd
	}
	return windows
}

// clampToWindow 将候选终点收进窗口：超出窗口终点则截断，起点不做下限处理
func clampToWindow(candidateEnd, windowEnd time.Time) time.Time {
	if candidateEnd.After(windowEnd) {
		return windowEnd
	}
	return candidateEnd
}

// minDate / maxDate 取一组可空日期的最小/最大值
func minDate(dates []*time.Time) *time.Time {
	var min *time.Time
	for _, d := range dates {
		if d == nil {
			continue
		}
		if min == nil || d.Before(*min) {
			min = d
		}
	}
	return min
}

func maxDate(dates []*time.Time) *time.Time {
	var max *time.Time
	for _, d := range dates {
		if d == nil {
			continue
		}
		if max == nil || d.After(*max) {
			max = d
		}
	}
	return max
}
