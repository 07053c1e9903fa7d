// Package timeutil provides timestamp formatting and human-readable countdowns
package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// FormatTimestamp renders t as ISO-8601 UTC (RFC3339 with a Z suffix)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a stored or upstream timestamp value.
// Accepts RFC3339 (with or without sub-second precision) and unix seconds,
// mirroring the formats the usage endpoint has been observed to emit.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(n, 0), true
	}

	return time.Time{}, false
}

// FormatUntil renders the time remaining until the given deadline as a
// compact countdown: "4d2h", "1h12m", "42m". Zero minor components are
// omitted ("4d", "1h"). Returns "" when the deadline has already passed.
func FormatUntil(until, now time.Time) string {
	d := until.Sub(now)
	if d <= 0 {
		return ""
	}

	// Round to the nearest minute so fetch latency doesn't skew the display.
	mins := int((d + time.Minute/2) / time.Minute)
	if mins < 1 {
		mins = 1
	}

	days := mins / (24 * 60)
	hours := (mins % (24 * 60)) / 60
	minutes := mins % 60

	switch {
	case days > 0:
		if hours > 0 {
			return strconv.Itoa(days) + "d" + strconv.Itoa(hours) + "h"
		}
		return strconv.Itoa(days) + "d"
	case hours > 0:
		if minutes > 0 {
			return strconv.Itoa(hours) + "h" + strconv.Itoa(minutes) + "m"
		}
		return strconv.Itoa(hours) + "h"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}

// CountdownFrom parses a stored reset timestamp and formats the remaining
// time relative to now. Empty or unparsable input yields "".
func CountdownFrom(resetsAt string, now time.Time) string {
	t, ok := ParseTimestamp(resetsAt)
	if !ok {
		return ""
	}
	return FormatUntil(t, now)
}
