package record

import "github.com/tidwall/gjson"

// Prioritized field lookups over the raw cache document. Each reading is
// resolved nested-field-first, then via the flat legacy name written by
// schema v1 caches, so records produced by either generation project the
// same way.

var (
	sessionPctPaths   = []string{"currentSession.percentUsed", "quotaUsedPct"}
	sessionResetPaths = []string{"currentSession.resetsAt", "quotaResetsAt"}
	weeklyPctPaths    = []string{"weeklyLimits.percentUsed", "weeklyUsedPct"}
	weeklyResetPaths  = []string{"weeklyLimits.resetsAt", "weeklyResetsAt"}
)

// FirstNumber returns the first numeric value present at the given paths.
func FirstNumber(raw []byte, paths ...string) (float64, bool) {
	for _, p := range paths {
		if res := gjson.GetBytes(raw, p); res.Exists() && (res.Type == gjson.Number) {
			return res.Float(), true
		}
	}
	return 0, false
}

// FirstString returns the first non-empty string value at the given paths.
func FirstString(raw []byte, paths ...string) (string, bool) {
	for _, p := range paths {
		if res := gjson.GetBytes(raw, p); res.Exists() && res.String() != "" {
			return res.String(), true
		}
	}
	return "", false
}

// SessionPercent resolves the short-window usage percentage.
func SessionPercent(raw []byte) (float64, bool) {
	return FirstNumber(raw, sessionPctPaths...)
}

// SessionResetsAt resolves the short-window reset timestamp.
func SessionResetsAt(raw []byte) (string, bool) {
	return FirstString(raw, sessionResetPaths...)
}

// WeeklyPercent resolves the weekly usage percentage.
func WeeklyPercent(raw []byte) (float64, bool) {
	return FirstNumber(raw, weeklyPctPaths...)
}

// WeeklyResetsAt resolves the weekly reset timestamp.
func WeeklyResetsAt(raw []byte) (string, bool) {
	return FirstString(raw, weeklyResetPaths...)
}
