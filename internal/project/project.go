// Package project maps the stored usage record into the flat, all-string
// result the status line consumes. This is the only surface the host
// application touches.
package project

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/JillVernus/cc-usageline/internal/record"
	"github.com/JillVernus/cc-usageline/internal/timeutil"
)

// Result is the caller-facing projection. Everything is a string for maximum
// consumer compatibility; booleans render as the literals "true"/"false".
type Result struct {
	Pct            string `json:"pct"`
	WeeklyPct      string `json:"weekly_pct"`
	ResetsIn       string `json:"resets_in"`
	WeeklyResetsIn string `json:"weekly_resets_in"`
	Stale          string `json:"stale"`
	Valid          string `json:"valid"`
}

// Empty is the projection served when nothing is known yet.
func Empty() Result {
	return Result{Stale: "false", Valid: "false"}
}

// Project maps the raw cache document into a Result. Countdowns are always
// recomputed from the stored reset timestamps against now, so elapsed
// wall-clock time during an outage is reflected. Field lookups prefer the
// nested schema and fall back to the flat legacy names.
func Project(raw []byte, now time.Time) Result {
	if len(raw) == 0 {
		return Empty()
	}

	res := Empty()

	if pct, ok := record.SessionPercent(raw); ok {
		res.Pct = record.FormatPercent(record.NormalizePercent(pct))
	}
	if pct, ok := record.WeeklyPercent(raw); ok {
		res.WeeklyPct = record.FormatPercent(record.NormalizePercent(pct))
	}
	if at, ok := record.SessionResetsAt(raw); ok {
		res.ResetsIn = timeutil.CountdownFrom(at, now)
	}
	if at, ok := record.WeeklyResetsAt(raw); ok {
		res.WeeklyResetsIn = timeutil.CountdownFrom(at, now)
	}

	if gjson.GetBytes(raw, "stale").Bool() {
		res.Stale = "true"
	}
	if gjson.GetBytes(raw, "valid").Bool() {
		res.Valid = "true"
	}

	return res
}
