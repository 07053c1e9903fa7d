// Package coordinator decides when to trust the cached usage snapshot, when
// to refresh it, and how to keep concurrent refreshes from piling up. The
// caller-facing contract is Get: it never blocks on the network except on a
// true cold start, and it always returns whatever the cache file currently
// holds.
package coordinator

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JillVernus/cc-usageline/internal/cachestore"
	"github.com/JillVernus/cc-usageline/internal/fetch"
	"github.com/JillVernus/cc-usageline/internal/project"
	"github.com/JillVernus/cc-usageline/internal/record"
)

// Fetcher is the upstream collaborator. *fetch.Client implements it.
type Fetcher interface {
	FetchUsage(ctx context.Context) ([]byte, error)
}

// Coordinator owns the freshness check, the single-flight refresh dispatch
// and the final re-read of the cache file.
type Coordinator struct {
	store     *cachestore.Store
	fetcher   Fetcher
	lockPath  string
	sourceURL string
	timeout   time.Duration

	// dispatch spawns the detached background worker. Swapped in tests.
	dispatch func(lockPath string) error

	// group coalesces synchronous refreshes within this process (relevant
	// for serve mode, where many goroutines call Get). Cross-process
	// coordination stays with the PID lock marker.
	group singleflight.Group

	now func() time.Time
}

// New creates a coordinator. timeout bounds each fetch attempt.
func New(store *cachestore.Store, fetcher Fetcher, lockPath, sourceURL string, timeout time.Duration) *Coordinator {
	return &Coordinator{
		store:     store,
		fetcher:   fetcher,
		lockPath:  lockPath,
		sourceURL: sourceURL,
		timeout:   timeout,
		dispatch:  dispatchDetached,
		now:       time.Now,
	}
}

// Get returns the current projection, refreshing the cache first if needed.
//
//   - Cache younger than ttl: served as-is, no refresh.
//   - No cache at all: one synchronous refresh, so the very first call never
//     returns an empty result.
//   - Stale cache, no refresh in flight: a detached background refresh is
//     dispatched and the previous record is served immediately.
//   - Dispatch failure: fall back to a synchronous refresh in this call.
//
// Whatever happened, the cache file is re-read at the end and that is what
// the caller observes; Get never waits for a background worker.
func (c *Coordinator) Get(ttl time.Duration) project.Result {
	mtime, exists := c.store.ModTime()
	_, cached := c.store.Read()

	// An unparsable cache file counts as no cache at all.
	hasCache := exists && cached != nil

	switch {
	case hasCache && c.now().Sub(mtime) < ttl:
		// Fresh enough; no revalidation.
	case !hasCache:
		// Cold start: block for the first snapshot.
		c.refreshSync()
	case refreshInFlight(c.lockPath):
		// Another process already owns the refresh; serve what we have.
	default:
		if err := c.dispatch(c.lockPath); err != nil {
			log.Printf("⚠️ Background refresh dispatch failed, fetching inline: %v", err)
			c.refreshSync()
		}
	}

	_, raw := c.store.Read()
	return project.Project(raw, c.now())
}

// refreshSync runs one refresh cycle, coalescing concurrent in-process calls.
func (c *Coordinator) refreshSync() {
	c.group.Do("refresh", func() (interface{}, error) {
		c.RefreshOnce()
		return nil, nil
	})
}

// RefreshOnce performs a single fetch/build/write cycle. Failures degrade to
// a stale record preserving the best-known prior values; nothing here is
// fatal to the caller. Also the body of the detached refresh worker.
func (c *Coordinator) RefreshOnce() {
	now := c.now()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	body, fetchErr := c.fetcher.FetchUsage(ctx)
	_, prevRaw := c.store.Read()

	var rec *record.QuotaRecord
	if fetchErr != nil {
		reason, detail, statusCode := fetch.Classify(fetchErr)
		log.Printf("⚠️ Usage fetch failed (%s): %s", reason, detail)
		rec = record.BuildDegraded(prevRaw, now, reason, detail, statusCode)
	} else {
		var buildErr error
		rec, buildErr = record.BuildSuccess(body, now)
		if buildErr != nil {
			log.Printf("⚠️ Usage payload unusable: %v", buildErr)
			rec = record.BuildDegraded(prevRaw, now, "malformed usage payload", buildErr.Error(), 0)
		} else {
			log.Printf("✅ Usage snapshot refreshed: session=%s%% weekly=%s%%",
				record.FormatPercent(rec.CurrentSession.PercentUsed),
				record.FormatPercent(rec.WeeklyLimits.PercentUsed))
		}
	}

	rec.SourceURL = c.sourceURL
	if err := c.store.Write(rec); err != nil {
		log.Printf("⚠️ Failed to write usage cache: %v", err)
	}
}

// LockPath returns the lock marker path (the refresh worker removes it on
// exit).
func (c *Coordinator) LockPath() string {
	return c.lockPath
}
