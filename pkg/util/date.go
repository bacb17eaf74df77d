package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date layout used in report names and API parameters.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "20060102", "2006/01/02", time.RFC3339}

// ParseDate accepts 2006-01-02, 20060102, 2006/01/02, RFC3339 and unix
// milliseconds. The result is truncated to midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 99991231 {
		return DateOnly(time.UnixMilli(ms)), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// DateOnly drops the clock part, keeping the calendar date of t in its own zone.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as 2006-01-02.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOnly(time.Now().In(loc))
}
