package util

import (
	"strconv"
	"time"
)

// unix timestamps above this are treated as milliseconds
const unixMillisCutoff = 1e12

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds or milliseconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts >= unixMillisCutoff {
			return time.UnixMilli(ts), true
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// StartOfDay is local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// HoursElapsedToday is the fractional number of hours since local midnight.
func HoursElapsedToday(t time.Time, loc *time.Location) float64 {
	return t.Sub(StartOfDay(t, loc)).Hours()
}

// IsLocalDate reports whether the calendar date day is t's date in loc.
// day is read as stored: a DATE column scans as UTC midnight and must not be
// shifted into loc.
func IsLocalDate(day, t time.Time, loc *time.Location) bool {
	dy, dm, dd := day.Date()
	ty, tm, td := t.In(loc).Date()
	return dy == ty && dm == tm && dd == td
}

// WholeDays floors d to full days.
func WholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
