package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JillVernus/cc-usageline/internal/timeutil"
)

// BuildSuccess constructs the record for a successful fetch. body is the raw
// upstream response; now is the attempt time. Pure function of its inputs.
func BuildSuccess(body []byte, now time.Time) (*QuotaRecord, error) {
	five := gjson.GetBytes(body, "five_hour")
	seven := gjson.GetBytes(body, "seven_day")
	if !five.Exists() && !seven.Exists() {
		return nil, fmt.Errorf("usage payload has no five_hour or seven_day block")
	}

	nowISO := timeutil.FormatTimestamp(now)
	rec := &QuotaRecord{
		SchemaVersion:       SchemaVersion,
		AttemptedAt:         nowISO,
		FetchedAt:           nowISO,
		UpdatedAt:           nowISO,
		LastSuccessAt:       nowISO,
		CurrentSession:      buildWindow(five, now),
		WeeklyLimits:        buildWindow(seven, now),
		Valid:               true,
		Stale:               false,
		ConsecutiveFailures: 0,
	}

	if extra := gjson.GetBytes(body, "extra_usage"); extra.Exists() && extra.IsObject() {
		rec.ExtraUsage = json.RawMessage(extra.Raw)
	}

	return rec, nil
}

// buildWindow extracts one usage window from an upstream block.
func buildWindow(block gjson.Result, now time.Time) UsageWindow {
	var w UsageWindow
	if !block.Exists() {
		return w
	}

	if util := block.Get("utilization"); util.Exists() && util.Type == gjson.Number {
		w.PercentUsed = NormalizePercent(util.Float())
	}

	if at := block.Get("resets_at"); at.Exists() {
		if t, ok := timeutil.ParseTimestamp(at.String()); ok {
			w.ResetsAt = timeutil.FormatTimestamp(t)
			w.ResetsIn = timeutil.FormatUntil(t, now)
		}
	}

	return w
}

// BuildDegraded constructs the record for a failed attempt, merging the
// failure diagnostics with the best available prior record. prevRaw is the
// raw bytes of the previous cache file (nil when no cache exists); reason is
// a short failure category, errText the full error, statusCode the upstream
// HTTP status (0 when no response was received). Pure function of its inputs.
func BuildDegraded(prevRaw []byte, now time.Time, reason, errText string, statusCode int) *QuotaRecord {
	nowISO := timeutil.FormatTimestamp(now)
	rec := &QuotaRecord{
		SchemaVersion: SchemaVersion,
		AttemptedAt:   nowISO,
		UpdatedAt:     nowISO,
		Valid:         false,
		Stale:         true,
		StaleReason:   reason,
		Error:         errText,
	}
	if statusCode != 0 {
		code := statusCode
		rec.APIStatusCode = &code
	}

	// Carry the best-known readings forward, nested-then-legacy.
	if pct, ok := SessionPercent(prevRaw); ok {
		rec.CurrentSession.PercentUsed = NormalizePercent(pct)
	}
	if at, ok := SessionResetsAt(prevRaw); ok {
		rec.CurrentSession.ResetsAt = at
		// Recompute the countdown against the current clock; real time has
		// elapsed since the stored string was rendered.
		rec.CurrentSession.ResetsIn = timeutil.CountdownFrom(at, now)
	}
	if pct, ok := WeeklyPercent(prevRaw); ok {
		rec.WeeklyLimits.PercentUsed = NormalizePercent(pct)
	}
	if at, ok := WeeklyResetsAt(prevRaw); ok {
		rec.WeeklyLimits.ResetsAt = at
		rec.WeeklyLimits.ResetsIn = timeutil.CountdownFrom(at, now)
	}

	rec.FetchedAt = gjson.GetBytes(prevRaw, "fetchedAt").String()
	rec.LastSuccessAt = gjson.GetBytes(prevRaw, "lastSuccessAt").String()

	if extra := gjson.GetBytes(prevRaw, "extraUsage"); extra.Exists() && extra.IsObject() {
		rec.ExtraUsage = json.RawMessage(extra.Raw)
	}

	// staleSince tracks the start of the current unbroken failure run.
	if gjson.GetBytes(prevRaw, "stale").Bool() {
		if since := gjson.GetBytes(prevRaw, "staleSince").String(); since != "" {
			rec.StaleSince = since
		} else {
			rec.StaleSince = nowISO
		}
	} else {
		rec.StaleSince = nowISO
	}

	prevFailures := int(gjson.GetBytes(prevRaw, "consecutiveFailures").Int())
	if prevFailures < 0 {
		prevFailures = 0
	}
	rec.ConsecutiveFailures = prevFailures + 1

	return rec
}
