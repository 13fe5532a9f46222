package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"go.uber.org/zap"
)

const (
	DefaultMaxSize            = 10000
	DefaultTombstoneRetention = time.Minute
)

type Options struct {
	MaxSize            int
	DefaultTTL         time.Duration
	TombstoneRetention time.Duration
	// Now is the clock used for expiry; time.Now when nil.
	Now func() time.Time
}

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
	ttl        time.Duration
	version    uint64
}

func (e *entry[V]) expired(now time.Time) bool {
	return !now.Before(e.insertedAt.Add(e.ttl))
}

type tombstone struct {
	generation uint64
	at         time.Time
}

// Cache is a size-bounded LRU with per-entry TTL. Expiry is checked on every
// read, so an entry is never returned past its TTL even without the janitor.
//
// Every invalidation advances a generation counter. Writers that computed a
// value from the source of truth pass the generation they observed before
// reading (see Version and PutIfFresh); a write older than an invalidation
// covering its key is dropped.
type Cache[V any] struct {
	name string
	mu   sync.Mutex

	items      map[string]*list.Element
	order      *list.List
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time

	generation uint64
	keyStones  map[string]tombstone
	prefStones map[string]tombstone
	clearGen   uint64
	floor      uint64
	retention  time.Duration
	lastPrune  time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

func New[V any](name string, opts Options) *Cache[V] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.TombstoneRetention <= 0 {
		opts.TombstoneRetention = DefaultTombstoneRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[V]{
		name:       name,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    opts.MaxSize,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
		keyStones:  make(map[string]tombstone),
		prefStones: make(map[string]tombstone),
		retention:  opts.TombstoneRetention,
		lastPrune:  opts.Now(),
	}
}

func (c *Cache[V]) Name() string { return c.name }

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[V])
	if e.expired(c.now()) {
		c.removeElement(el)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put stores value unconditionally. A ttl <= 0 uses the cache default.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value, ttl, c.generation)
}

// Version returns the current generation. Read it before fetching the data
// that will be passed to PutIfFresh.
func (c *Cache[V]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// PutIfFresh stores value only if no invalidation covering key happened after
// version was observed. It reports whether the value was stored.
func (c *Cache[V]) PutIfFresh(key string, value V, ttl time.Duration, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(key, version) {
		logger.Debug("Dropped stale cache write",
			zap.String("cache", c.name), zap.String("key", key), zap.Uint64("version", version))
		return false
	}
	c.store(key, value, ttl, version)
	return true
}

// Watermark returns the generation of the newest invalidation covering key.
// Data fetched after observing a watermark is not stale for invalidations
// at or below it.
func (c *Cache[V]) Watermark(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark(key)
}

func (c *Cache[V]) watermark(key string) uint64 {
	mark := max(c.floor, c.clearGen)
	if ts, ok := c.keyStones[key]; ok {
		mark = max(mark, ts.generation)
	}
	for prefix, ts := range c.prefStones {
		if ts.generation > mark && strings.HasPrefix(key, prefix) {
			mark = ts.generation
		}
	}
	return mark
}

func (c *Cache[V]) stale(key string, version uint64) bool {
	return version < c.watermark(key)
}

func (c *Cache[V]) store(key string, value V, ttl time.Duration, version uint64) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &entry[V]{key: key, value: value, insertedAt: c.now(), ttl: ttl, version: version}
	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
		c.evictions++
	}
}

func (c *Cache[V]) removeElement(el *list.Element) {
	e := el.Value.(*entry[V])
	delete(c.items, e.key)
	c.order.Remove(el)
}

func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	now := c.now()
	c.keyStones[key] = tombstone{generation: c.generation, at: now}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.maybePrune(now)
}

// InvalidatePrefix drops every entry whose key starts with prefix and returns
// how many were removed.
func (c *Cache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	now := c.now()
	c.prefStones[prefix] = tombstone{generation: c.generation, at: now}
	removed := 0
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
			removed++
		}
	}
	c.maybePrune(now)
	return removed
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.clearGen = c.generation
	c.items = make(map[string]*list.Element)
	c.order.Init()
	// the clear generation covers every older tombstone
	c.keyStones = make(map[string]tombstone)
	c.prefStones = make(map[string]tombstone)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[V]) Stats() pdp_model.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pdp_model.CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
	}
}

// Sweep removes expired entries and old tombstones. It returns the number of
// entries removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[V]).expired(now) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	c.prune(now)
	return removed
}

func (c *Cache[V]) maybePrune(now time.Time) {
	if now.Sub(c.lastPrune) >= c.retention/2 {
		c.prune(now)
	}
}

// prune forgets tombstones older than the retention window. The generation of
// anything forgotten becomes the floor below which writes are refused.
func (c *Cache[V]) prune(now time.Time) {
	c.lastPrune = now
	cutoff := now.Add(-c.retention)
	for key, ts := range c.keyStones {
		if ts.at.Before(cutoff) {
			c.raiseFloor(ts.generation)
			delete(c.keyStones, key)
		}
	}
	for prefix, ts := range c.prefStones {
		if ts.at.Before(cutoff) {
			c.raiseFloor(ts.generation)
			delete(c.prefStones, prefix)
		}
	}
}

func (c *Cache[V]) raiseFloor(generation uint64) {
	if generation > c.floor {
		c.floor = generation
	}
}

// StartJanitor sweeps the cache every interval until ctx is done.
func (c *Cache[V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					logger.Debug("Swept expired cache entries", zap.String("cache", c.name), zap.Int("removed", n))
				}
			}
		}
	}()
}
