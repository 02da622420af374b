package application

import (
	"strconv"
	"sync"
	"time"
)

// suggestionCache stores audit results keyed by store revision so repeated audits
// of an unchanged store skip the search.
type suggestionCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]suggestionCacheEntry
}

type suggestionCacheEntry struct {
	suggestions []Suggestion
	expiresAt   time.Time
}

func newSuggestionCache(ttl time.Duration, maxEntries int, now func() time.Time) *suggestionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 16
	}
	if now == nil {
		now = time.Now
	}
	return &suggestionCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]suggestionCacheEntry),
	}
}

func (c *suggestionCache) Get(key string) ([]Suggestion, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSuggestions(entry.suggestions), true
}

func (c *suggestionCache) Store(key string, suggestions []Suggestion) {
	if c == nil {
		return
	}
	cloned := cloneSuggestions(suggestions)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = suggestionCacheEntry{suggestions: cloned, expiresAt: expiry}
}

func (c *suggestionCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]suggestionCacheEntry)
	c.mu.Unlock()
}

func (c *suggestionCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *suggestionCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSuggestions(suggestions []Suggestion) []Suggestion {
	if len(suggestions) == 0 {
		return nil
	}
	out := make([]Suggestion, len(suggestions))
	for i, s := range suggestions {
		if s.Target != nil {
			target := *s.Target
			s.Target = &target
		}
		out[i] = s
	}
	return out
}

func revisionKey(revision uint64) string {
	return strconv.FormatUint(revision, 10)
}
