package feed

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type toggleEntry struct {
	limiter  *rate.Limiter
	inFlight bool
	lastSeen time.Time
}

// toggleGuard serialises toggle mutations per entity: while a toggle for a
// key is in flight, re-invocation is refused, and settled toggles are rate
// limited so rapid repeated taps cannot race the server. Entries expire
// after a TTL when idle.
type toggleGuard struct {
	mu      sync.Mutex
	entries map[string]*toggleEntry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

func newToggleGuard(minInterval, ttl time.Duration) *toggleGuard {
	if minInterval <= 0 {
		minInterval = 300 * time.Millisecond
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &toggleGuard{
		entries: make(map[string]*toggleEntry),
		limit:   rate.Every(minInterval),
		burst:   1,
		ttl:     ttl,
		now:     time.Now,
	}
}

// tryAcquire claims the key for one toggle. It fails while a previous toggle
// for the same key has not settled, or when taps arrive faster than the
// configured interval.
func (g *toggleGuard) tryAcquire(key string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.gcLocked(now)

	entry, ok := g.entries[key]
	if !ok {
		entry = &toggleEntry{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.entries[key] = entry
	}
	entry.lastSeen = now

	if entry.inFlight {
		return false
	}
	if !entry.limiter.Allow() {
		return false
	}
	entry.inFlight = true
	return true
}

// release settles the key. It must be called exactly once per successful
// tryAcquire, regardless of the toggle's outcome.
func (g *toggleGuard) release(key string) {
	g.mu.Lock()
	if entry, ok := g.entries[key]; ok {
		entry.inFlight = false
	}
	g.mu.Unlock()
}

func (g *toggleGuard) gcLocked(now time.Time) {
	for key, entry := range g.entries {
		if !entry.inFlight && now.Sub(entry.lastSeen) > g.ttl {
			delete(g.entries, key)
		}
	}
}
