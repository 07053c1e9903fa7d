// Package record defines the persisted usage snapshot and the builders that
// produce it from a fresh upstream response or from a failed attempt merged
// with the best-known prior snapshot.
package record

import "encoding/json"

// SchemaVersion is the current cache record schema. Version 1 records used
// flat top-level fields (quotaUsedPct, quotaResetsAt, ...); readers fall back
// to those so caches written by older implementations stay usable.
const SchemaVersion = 2

// UsageWindow holds one rolling usage window (short session or weekly).
type UsageWindow struct {
	PercentUsed *float64 `json:"percentUsed,omitempty"`
	ResetsAt    string   `json:"resetsAt,omitempty"`
	ResetsIn    string   `json:"resetsIn,omitempty"`
}

// QuotaRecord is the single cached usage snapshot. Exactly one record exists
// at a time; every fetch attempt (success or failure) overwrites it in place.
type QuotaRecord struct {
	SchemaVersion int    `json:"schemaVersion"`
	SourceURL     string `json:"sourceUrl,omitempty"`

	AttemptedAt   string `json:"attemptedAt,omitempty"`
	FetchedAt     string `json:"fetchedAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	LastSuccessAt string `json:"lastSuccessAt,omitempty"`

	CurrentSession UsageWindow `json:"currentSession"`
	WeeklyLimits   UsageWindow `json:"weeklyLimits"`

	// ExtraUsage is the optional secondary quota block from the upstream
	// response. Stored verbatim, never interpreted.
	ExtraUsage json.RawMessage `json:"extraUsage,omitempty"`

	Valid bool `json:"valid"`
	Stale bool `json:"stale"`

	// StaleSince marks the start of the current unbroken run of failures.
	// Cleared the moment a fetch succeeds.
	StaleSince  string `json:"staleSince,omitempty"`
	StaleReason string `json:"staleReason,omitempty"`
	Error       string `json:"error,omitempty"`

	APIStatusCode       *int `json:"apiStatusCode,omitempty"`
	ConsecutiveFailures int  `json:"consecutiveFailures"`
}
