package curriculum

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long cached rules stay fresh before the next lookup
// triggers a re-read from the source.
const DefaultTTL = 5 * time.Minute

type cacheKey struct {
	grade   int
	quarter Quarter
}

type cacheEntry struct {
	rules     map[Domain]Rule
	fetchedAt time.Time
}

// Cache is a read-through TTL cache over a rule Source, keyed by
// (grade, quarter). Construct one per process and inject it; it owns no
// global state.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCache creates a Cache over src. A non-positive ttl falls back to
// DefaultTTL.
func NewCache(src Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Rule returns the rule for (grade, quarter, domain), reading through the
// cache. Returns ErrRuleNotFound when the quarter is loaded but holds no
// rule for the domain.
func (c *Cache) Rule(ctx context.Context, grade int, quarter Quarter, domain Domain) (*Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{grade: grade, quarter: quarter}
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		rules, err := c.src.RulesFor(ctx, grade, quarter)
		if err != nil {
			return nil, fmt.Errorf("load rules for grade %d %s: %w", grade, quarter, err)
		}
		byDomain := make(map[Domain]Rule, len(rules))
		for _, r := range rules {
			byDomain[r.Domain] = r
		}
		entry = cacheEntry{rules: byDomain, fetchedAt: c.now()}
		c.entries[key] = entry
	}

	r, ok := entry.rules[domain]
	if !ok {
		return nil, fmt.Errorf("grade %d %s %s: %w", grade, quarter, domain, ErrRuleNotFound)
	}
	return &r, nil
}

// Invalidate drops all cached entries, forcing the next lookup to re-read.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
