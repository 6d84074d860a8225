// Package regexcache provides a process-global, bounded LRU cache of
// compiled regular expressions, keyed by (pattern, case_insensitive). It is
// the only long-lived shared mutable state in RuleZ (spec §3, §4.1, §9).
package regexcache

import (
	"fmt"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Capacity bounds the cache at 100 entries, per §4.1: an unbounded cache is
// a memory hazard in a long-running host, while 100 dominates real configs
// (typically under 30 distinct patterns).
const Capacity = 100

type key struct {
	pattern         string
	caseInsensitive bool
}

// Cache is a mutex-guarded bounded LRU of compiled regexes. The zero value
// is not usable; construct with New.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[key, *regexp.Regexp]
}

// New constructs a cache with the given capacity. Capacity <= 0 falls back
// to Capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = Capacity
	}
	inner, err := lru.New[key, *regexp.Regexp](capacity)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which New
		// already guards against above.
		panic(fmt.Sprintf("regexcache: unreachable lru.New error: %v", err))
	}
	return &Cache{inner: inner}
}

// global is the process-wide cache used by the pipeline. Lazily built on
// first use, never torn down except at process exit — mirrors the spec's
// "lazily initialised on first use" contract for process-global state.
var (
	globalOnce sync.Once
	globalC    *Cache
)

// Global returns the process-wide regex cache.
func Global() *Cache {
	globalOnce.Do(func() { globalC = New(Capacity) })
	return globalC
}

// GetOrCompile returns the compiled regex for (pattern, caseInsensitive),
// compiling and inserting on a miss and evicting the least-recently-used
// entry if the cache is at capacity. Compile errors are never cached. The
// mutex is held only for the lookup/insert bookkeeping; regexp.Compile runs
// outside the lock on a miss whenever practical to keep the critical
// section small.
func (c *Cache) GetOrCompile(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	k := key{pattern: pattern, caseInsensitive: caseInsensitive}

	c.mu.Lock()
	if re, ok := c.inner.Get(k); ok {
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	effective := pattern
	if caseInsensitive {
		effective = "(?i)" + pattern
	}
	re, err := regexp.Compile(effective)
	if err != nil {
		return nil, fmt.Errorf("regexcache: compile %q: %w", pattern, err)
	}

	c.mu.Lock()
	// Another goroutine may have compiled the same key meanwhile; either
	// entry is equivalent, so just let the LRU's own insert semantics
	// (promote-or-evict) handle it.
	c.inner.Add(k, re)
	c.mu.Unlock()

	return re, nil
}

// Len reports the number of entries currently cached. Exposed for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Contains reports whether (pattern, caseInsensitive) is currently cached,
// WITHOUT affecting recency. Exposed for tests (e.g. LRU eviction order).
func (c *Cache) Contains(pattern string, caseInsensitive bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Contains(key{pattern: pattern, caseInsensitive: caseInsensitive})
}

// Clear empties the cache. Exposed solely for the debug/simulation entry
// points so a per-invocation test run starts from a known state (§4.1); the
// normal hook path must never call this.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}
