package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JillVernus/cc-usageline/internal/cachestore"
	"github.com/JillVernus/cc-usageline/internal/timeutil"
)

// fakeFetcher counts calls and returns a canned payload or error.
type fakeFetcher struct {
	calls atomic.Int64
	body  []byte
	err   error
}

func (f *fakeFetcher) FetchUsage(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func successBody(now time.Time) []byte {
	return []byte(fmt.Sprintf(`{"five_hour":{"utilization":68,"resets_at":%q},"seven_day":{"utilization":31,"resets_at":%q}}`,
		timeutil.FormatTimestamp(now.Add(72*time.Minute)),
		timeutil.FormatTimestamp(now.Add(4*24*time.Hour+2*time.Hour))))
}

func newTestCoordinator(t *testing.T, f Fetcher) *Coordinator {
	t.Helper()
	dir := t.TempDir()
	store := cachestore.New(filepath.Join(dir, "usage-cache.json"))
	c := New(store, f, filepath.Join(dir, "usage-cache.lock"), "https://example.invalid/usage", 5*time.Second)
	c.dispatch = func(string) error { return errors.New("dispatch disabled in test") }
	return c
}

func TestGet_ColdStartFetchesSynchronously(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	res := c.Get(time.Minute)

	if f.calls.Load() != 1 {
		t.Fatalf("expected exactly one fetch on cold start, got %d", f.calls.Load())
	}
	if res.Valid != "true" || res.Stale != "false" {
		t.Fatalf("cold start result = %+v", res)
	}
	if res.Pct != "68" || res.WeeklyPct != "31" {
		t.Fatalf("cold start percentages = %s / %s", res.Pct, res.WeeklyPct)
	}
}

func TestGet_FreshCacheSkipsFetch(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	first := c.Get(time.Minute)
	second := c.Get(time.Minute)

	if f.calls.Load() != 1 {
		t.Fatalf("expected zero additional fetches within ttl, got %d total", f.calls.Load())
	}
	if first != second {
		t.Fatalf("projections differ with unchanged cache: %+v vs %+v", first, second)
	}
}

func TestGet_StaleCacheDispatchesBackground(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.Get(time.Minute) // cold start, writes the cache

	var dispatched atomic.Int64
	c.dispatch = func(lockPath string) error {
		dispatched.Add(1)
		return nil
	}

	// Zero ttl: the cache is immediately stale.
	res := c.Get(0)

	if dispatched.Load() != 1 {
		t.Fatalf("expected one background dispatch, got %d", dispatched.Load())
	}
	if f.calls.Load() != 1 {
		t.Fatalf("caller must not fetch inline when dispatch succeeds, got %d fetches", f.calls.Load())
	}
	// The previous record is served immediately.
	if res.Pct != "68" || res.Valid != "true" {
		t.Fatalf("expected previous record served, got %+v", res)
	}
}

func TestGet_LiveLockSuppressesSecondDispatch(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.Get(time.Minute)

	// Record our own (definitely live) PID as the in-flight refresh owner.
	if err := writeLockPID(c.lockPath, os.Getpid()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	var dispatched atomic.Int64
	c.dispatch = func(string) error {
		dispatched.Add(1)
		return nil
	}

	c.Get(0)
	c.Get(0)

	if dispatched.Load() != 0 {
		t.Fatalf("expected no dispatch while a live refresh is recorded, got %d", dispatched.Load())
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected no inline fetch either, got %d", f.calls.Load())
	}
}

func TestGet_DeadLockOwnerIsIgnored(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.Get(time.Minute)

	// A PID from a long-dead process must not block the refresh.
	if err := writeLockPID(c.lockPath, 1<<22+12345); err != nil {
		t.Fatalf("setup: %v", err)
	}

	var dispatched atomic.Int64
	c.dispatch = func(string) error {
		dispatched.Add(1)
		return nil
	}

	c.Get(0)

	if dispatched.Load() != 1 {
		t.Fatalf("expected dispatch despite stale lock marker, got %d", dispatched.Load())
	}
}

func TestGet_DispatchFailureFallsBackToSyncFetch(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.Get(time.Minute)

	c.dispatch = func(string) error { return errors.New("fork failed") }

	res := c.Get(0)

	if f.calls.Load() != 2 {
		t.Fatalf("expected inline fetch after dispatch failure, got %d fetches", f.calls.Load())
	}
	if res.Valid != "true" {
		t.Fatalf("expected refreshed result, got %+v", res)
	}
}

func TestGet_FetchFailureDegradesToStale(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.Get(time.Minute) // good snapshot first

	f.err = errors.New("connection reset")
	c.dispatch = func(string) error { return errors.New("no background in test") }

	res := c.Get(0) // stale, dispatch fails, inline fetch fails, degraded write

	if res.Stale != "true" || res.Valid != "false" {
		t.Fatalf("expected stale degraded result, got %+v", res)
	}
	if res.Pct != "68" {
		t.Fatalf("prior percentage must survive the outage, got %q", res.Pct)
	}

	rec, _ := c.store.Read()
	if rec == nil || rec.ConsecutiveFailures != 1 {
		t.Fatalf("expected one recorded failure, got %+v", rec)
	}
	if rec.LastSuccessAt == "" {
		t.Fatalf("lastSuccessAt must be preserved through failures")
	}
}

func TestGet_CorruptCacheRunsColdStart(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	if err := os.WriteFile(c.store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	res := c.Get(time.Hour) // corrupt file is recent, but unusable

	if f.calls.Load() != 1 {
		t.Fatalf("expected synchronous refetch for corrupt cache, got %d", f.calls.Load())
	}
	if res.Valid != "true" {
		t.Fatalf("expected fresh result after corrupt-cache recovery, got %+v", res)
	}
}

func TestRefreshOnce_WritesRecordWithSourceURL(t *testing.T) {
	f := &fakeFetcher{body: successBody(time.Now())}
	c := newTestCoordinator(t, f)

	c.RefreshOnce()

	rec, _ := c.store.Read()
	if rec == nil {
		t.Fatalf("expected record written")
	}
	if rec.SourceURL != "https://example.invalid/usage" {
		t.Fatalf("sourceUrl = %q", rec.SourceURL)
	}
}
