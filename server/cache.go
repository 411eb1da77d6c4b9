// ABOUTME: In-memory lint result cache keyed by the sha256 of the flow document and the rule config.
// ABOUTME: Expired entries are evicted on write and the entry count is capped; errors are never cached.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/flowlint/lint"
)

// DefaultMaxCacheEntries caps the cache when NewResultCache is given no limit.
const DefaultMaxCacheEntries = 512

// LintFunc lints a raw flow document with a rule config.
type LintFunc func(ctx context.Context, flowJSON []byte, cfg lint.Config) (*lint.Report, error)

type cacheEntry struct {
	report    *lint.Report
	createdAt time.Time
}

// ResultCache wraps a LintFunc with an in-memory cache. Entries expire after the TTL
// and at most maxEntries are held at once.
type ResultCache struct {
	lintFn     LintFunc
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	mu         sync.RWMutex
}

// NewResultCache creates a ResultCache wrapping lintFn. maxEntries <= 0 selects
// DefaultMaxCacheEntries.
func NewResultCache(lintFn LintFunc, ttl time.Duration, maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	return &ResultCache{
		lintFn:     lintFn,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

// Lint returns the cached report for the same flow and config when it has not expired,
// and otherwise runs the wrapped function. hit reports whether the cache answered.
func (c *ResultCache) Lint(ctx context.Context, flowJSON []byte, cfg lint.Config) (report *lint.Report, hit bool, err error) {
	key, err := cacheKey(flowJSON, cfg)
	if err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok {
		if time.Since(entry.createdAt) < c.ttl {
			report := entry.report
			c.mu.RUnlock()
			return report, true, nil
		}
	}
	c.mu.RUnlock()

	report, err = c.lintFn(ctx, flowJSON, cfg)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.pruneLocked()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{report: report, createdAt: time.Now()}
	c.mu.Unlock()

	return report, false, nil
}

// Len returns the number of entries currently in the cache (including expired ones).
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RunJanitor prunes expired entries every interval until ctx is done.
func (c *ResultCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// Prune drops expired entries and returns how many were removed.
func (c *ResultCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked()
}

func (c *ResultCache) pruneLocked() int {
	removed := 0
	for key, entry := range c.entries {
		if time.Since(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldestLocked drops the entry written longest ago.
func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldest) {
			oldestKey, oldest = key, entry.createdAt
		}
	}
	delete(c.entries, oldestKey)
}

// cacheKey hashes the flow bytes and the encoded config. Subrule params encode with
// sorted keys, so equal configs produce equal keys.
func cacheKey(flowJSON []byte, cfg lint.Config) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return fmt.Sprintf("%x:%x", sha256.Sum256(flowJSON), sha256.Sum256(cfgJSON)), nil
}
