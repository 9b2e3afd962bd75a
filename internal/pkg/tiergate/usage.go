package tiergate

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/replygate/ReplyGate/app/models"
	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/cache"
)

const (
	// DefaultUsageCacheTTL bounds how long a snapshot may serve decisions.
	DefaultUsageCacheTTL = 5 * time.Minute
	// DefaultQueryTimeout boxes each usage query round-trip.
	DefaultQueryTimeout = 2 * time.Second
	// invalidationHoldoff keeps an account on the pending-invalidation set
	// briefly so a concurrent reader cannot re-cache a stale snapshot.
	invalidationHoldoff = 500 * time.Millisecond
)

// UsageTracker computes per-cycle consumption counters from activity events,
// with an account-keyed TTL cache invalidated eagerly on usage-affecting
// writes. Safe for concurrent use.
type UsageTracker struct {
	usage repository.UsageRepository
	store cache.Store

	ttl          time.Duration
	queryTimeout time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewUsageTracker creates a tracker over the given repository and cache.
func NewUsageTracker(usage repository.UsageRepository, store cache.Store) *UsageTracker {
	return &UsageTracker{
		usage:        usage,
		store:        store,
		ttl:          DefaultUsageCacheTTL,
		queryTimeout: DefaultQueryTimeout,
		pending:      make(map[string]struct{}),
	}
}

func usageCacheKey(accountID string) string {
	return "usage:" + accountID
}

// Current returns the account's usage snapshot for the effective cycle,
// from cache when valid. Query failures produce a snapshot with Err set,
// never a silent zero count.
func (t *UsageTracker) Current(ctx context.Context, accountID string, tier TierInfo) UsageSnapshot {
	if snap, ok := t.cached(ctx, accountID); ok {
		return snap
	}

	now := time.Now().UTC()
	cycleStart := t.effectiveCycleStart(ctx, accountID, tier, now)
	snap := t.fetch(ctx, accountID, cycleStart, now)

	if !snap.Err {
		t.cacheSnapshot(ctx, accountID, snap)
	}
	return snap
}

// Invalidate removes the cached snapshot for an account and blocks re-caching
// for a short holdoff. Called after every usage-affecting write.
func (t *UsageTracker) Invalidate(ctx context.Context, accountID string) {
	t.mu.Lock()
	t.pending[accountID] = struct{}{}
	t.mu.Unlock()

	if err := t.store.Delete(ctx, usageCacheKey(accountID)); err != nil {
		log.Printf("usage cache invalidation failed for account %s: %v", accountID, err)
	}

	time.AfterFunc(invalidationHoldoff, func() {
		t.mu.Lock()
		delete(t.pending, accountID)
		t.mu.Unlock()
	})
}

func (t *UsageTracker) cached(ctx context.Context, accountID string) (UsageSnapshot, bool) {
	t.mu.Lock()
	_, invalidating := t.pending[accountID]
	t.mu.Unlock()
	if invalidating {
		return UsageSnapshot{}, false
	}

	entry, ok, err := t.store.Get(ctx, usageCacheKey(accountID))
	if err != nil || !ok {
		return UsageSnapshot{}, false
	}
	if time.Since(entry.FetchedAt) >= t.ttl {
		return UsageSnapshot{}, false
	}
	var snap UsageSnapshot
	if err := json.Unmarshal(entry.Data, &snap); err != nil {
		_ = t.store.Delete(ctx, usageCacheKey(accountID))
		return UsageSnapshot{}, false
	}
	return snap, true
}

func (t *UsageTracker) cacheSnapshot(ctx context.Context, accountID string, snap UsageSnapshot) {
	t.mu.Lock()
	_, invalidating := t.pending[accountID]
	t.mu.Unlock()
	if invalidating {
		return
	}
	entry, err := cache.NewEntry(snap)
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, usageCacheKey(accountID), entry, t.ttl); err != nil {
		log.Printf("usage cache write failed for account %s: %v", accountID, err)
	}
}

// fetch runs the three counter queries concurrently, each under its own
// timeout. Any failure flags the snapshot instead of defaulting to zero.
func (t *UsageTracker) fetch(ctx context.Context, accountID string, cycleStart, now time.Time) UsageSnapshot {
	snap := UsageSnapshot{
		PlatformAccounts: map[string]int{},
		CycleStart:       cycleStart,
		FetchedAt:        now,
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responses int64
		analyses  int64
		platforms []models.PlatformAccount
		failed    bool
	)

	fail := func(op string, err error) {
		mu.Lock()
		failed = true
		mu.Unlock()
		log.Printf("usage fetch %s failed for account %s: %v", op, accountID, err)
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
		defer cancel()
		n, err := t.usage.CountResponses(qctx, accountID, cycleStart)
		if err != nil {
			fail("response count", err)
			return
		}
		responses = n
	}()
	go func() {
		defer wg.Done()
		qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
		defer cancel()
		n, err := t.usage.SumAnalyses(qctx, accountID, cycleStart)
		if err != nil {
			fail("analysis sum", err)
			return
		}
		analyses = n
	}()
	go func() {
		defer wg.Done()
		qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
		defer cancel()
		rows, err := t.usage.ActivePlatformAccounts(qctx, accountID)
		if err != nil {
			fail("platform accounts", err)
			return
		}
		platforms = rows
	}()
	wg.Wait()

	if failed || responses < 0 || analyses < 0 {
		snap.Err = true
		return snap
	}

	snap.ResponsesThisCycle = int(responses)
	snap.AnalysesThisCycle = int(analyses)
	for _, p := range platforms {
		if p.Platform != "" {
			snap.PlatformAccounts[p.Platform]++
		}
	}
	return snap
}

// effectiveCycleStart is the later of the billing period start and the newest
// tier-upgrade reset marker. Upgrades reset counters immediately; downgrades
// never do, so the marker breaks the tie in the upgrade's favor.
func (t *UsageTracker) effectiveCycleStart(ctx context.Context, accountID string, tier TierInfo, now time.Time) time.Time {
	start := monthStartUTC(now)
	if tier.PeriodStart != nil {
		start = tier.PeriodStart.UTC()
	}

	qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
	defer cancel()
	reset, err := t.usage.LatestUsageReset(qctx, accountID)
	if err != nil {
		log.Printf("usage reset lookup failed for account %s, falling back to billing period start: %v", accountID, err)
		return start
	}
	if reset != nil && reset.ResetAt.After(start) {
		return reset.ResetAt.UTC()
	}
	return start
}

func monthStartUTC(now time.Time) time.Time {
	return time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextCycleStart is the first UTC instant of the day after the billing period
// end, or the first of next UTC month when no period end is known. The same
// now reference must be used for all month-boundary math in one computation.
func NextCycleStart(periodEnd *time.Time, now time.Time) time.Time {
	if periodEnd != nil {
		end := periodEnd.UTC()
		return time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, time.UTC)
	}
	n := now.UTC()
	return time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
