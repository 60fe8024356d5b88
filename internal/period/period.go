// Package period computes calendar period boundaries for commitment
// timeframes. All functions are insensitive to the time-of-day of their
// inputs and keep the input's location. Weeks start on Sunday.
package period

import (
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

// Start returns the inclusive start of the period containing t for the
// given timeframe. An unknown timeframe falls back to daily.
func Start(tf model.Timeframe, t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch tf {
	case model.TimeframeWeekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case model.TimeframeMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case model.TimeframeYearly:
		return time.Date(y, 1, 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

// Bounds returns the inclusive start and exclusive end of the period
// containing t.
func Bounds(tf model.Timeframe, t time.Time) (time.Time, time.Time) {
	start := Start(tf, t)
	return start, Next(tf, start)
}

// Next returns the start of the period immediately after the one
// containing t.
func Next(tf model.Timeframe, t time.Time) time.Time {
	start := Start(tf, t)
	switch tf {
	case model.TimeframeWeekly:
		return start.AddDate(0, 0, 7)
	case model.TimeframeMonthly:
		return start.AddDate(0, 1, 0)
	case model.TimeframeYearly:
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 0, 1)
}

// Same reports whether a and b fall in the same period for the given
// timeframe.
func Same(tf model.Timeframe, a, b time.Time) bool {
	return Start(tf, a).Equal(Start(tf, b))
}

// StartsWithin enumerates the starts of every period of the given
// timeframe overlapping the window [start, end). The first anchor may
// precede start when the window begins mid-period (a week straddling a
// month boundary belongs to both months' slot lists).
func StartsWithin(tf model.Timeframe, start, end time.Time) []time.Time {
	var anchors []time.Time
	for cur := Start(tf, start); cur.Before(end); cur = Next(tf, cur) {
		anchors = append(anchors, cur)
	}
	return anchors
}
