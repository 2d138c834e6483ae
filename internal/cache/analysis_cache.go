// Package cache keeps finished one-shot analyses so repeated requests for
// an unchanged buffer skip the analysis cycle.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/bracketeer/internal/processing"
)

const (
	DefaultMaxEntries = 256
	DefaultTTL        = 30 * time.Minute
)

type entry struct {
	analysis *processing.Analysis
	cachedAt int64 // unix nano
	hits     int64
}

// AnalysisCache maps a path and content hash to its analysis. It is safe
// for concurrent use. Entries older than the TTL are dropped on access and
// the oldest entry is evicted once the cache is full.
type AnalysisCache struct {
	entries sync.Map // key -> *entry

	maxEntries int
	ttlNanos   int64
	now        func() time.Time

	count     int64
	hits      int64
	misses    int64
	evictions int64
}

// Config sizes the cache
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultConfig returns the default sizes
func DefaultConfig() Config {
	return Config{MaxEntries: DefaultMaxEntries, TTL: DefaultTTL}
}

// New creates a cache. Zero fields fall back to the defaults.
func New(cfg Config) *AnalysisCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &AnalysisCache{
		maxEntries: cfg.MaxEntries,
		ttlNanos:   cfg.TTL.Nanoseconds(),
		now:        time.Now,
	}
}

// Key identifies a buffer by path and content
func Key(path string, content []byte) string {
	var b strings.Builder
	b.Grow(len(path) + 17)
	b.WriteString(strconv.FormatUint(xxhash.Sum64(content), 16))
	b.WriteByte(':')
	b.WriteString(path)
	return b.String()
}

// Get returns a copy of the cached analysis for key. Callers may filter the
// copy's sections without affecting the cache.
func (c *AnalysisCache) Get(key string) (*processing.Analysis, bool) {
	val, ok := c.entries.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	e := val.(*entry)
	if c.now().UnixNano()-e.cachedAt > c.ttlNanos {
		if c.entries.CompareAndDelete(key, e) {
			atomic.AddInt64(&c.count, -1)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&e.hits, 1)
	atomic.AddInt64(&c.hits, 1)
	cp := *e.analysis
	return &cp, true
}

// Put stores a copy of a for key
func (c *AnalysisCache) Put(key string, a *processing.Analysis) {
	cp := *a
	e := &entry{analysis: &cp, cachedAt: c.now().UnixNano()}
	if _, loaded := c.entries.Swap(key, e); loaded {
		return
	}
	if atomic.AddInt64(&c.count, 1) > int64(c.maxEntries) {
		c.evictOldest()
	}
}

func (c *AnalysisCache) evictOldest() {
	var oldestKey interface{}
	oldestTime := c.now().UnixNano()

	c.entries.Range(func(key, value interface{}) bool {
		e := value.(*entry)
		if e.cachedAt <= oldestTime {
			oldestTime = e.cachedAt
			oldestKey = key
		}
		return true
	})

	if oldestKey != nil {
		if _, ok := c.entries.LoadAndDelete(oldestKey); ok {
			atomic.AddInt64(&c.count, -1)
			atomic.AddInt64(&c.evictions, 1)
		}
	}
}

// Clear drops every entry
func (c *AnalysisCache) Clear() {
	c.entries.Range(func(key, _ interface{}) bool {
		if _, ok := c.entries.LoadAndDelete(key); ok {
			atomic.AddInt64(&c.count, -1)
		}
		return true
	})
}

// Stats holds cache counters
type Stats struct {
	Entries   int     `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the counters
func (c *AnalysisCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	return Stats{
		Entries:   int(atomic.LoadInt64(&c.count)),
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&c.evictions),
		HitRate:   rate,
	}
}
