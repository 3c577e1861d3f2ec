// Package cache implements the two-tier translation cache: a process-local
// map in front of a best-effort durable store. Entries expire after a TTL and
// the durable tier is held under a fixed entry ceiling, evicting oldest first.
//
// Durable-tier failures never reach callers. They are logged at debug level,
// counted, and the cache keeps working from memory.
package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/pkg/types"
)

const defaultQueueSize = 256

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	TTL       time.Duration
	Capacity  int
	Now       func() time.Time
	Logger    *zap.Logger
	Metrics   *Metrics
	QueueSize int
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	MemoryEntries  int    `json:"memory_entries"`
	DurableEntries int    `json:"durable_entries"` // -1 when the durable tier is unavailable
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Evictions      uint64 `json:"evictions"`
}

type entry struct {
	text     string
	storedAt time.Time
}

type opKind int

const (
	opPut opKind = iota
	opPurge
	opFlush
)

// op is one durable-tier mutation handled by the persister goroutine.
type op struct {
	kind  opKind
	entry types.CacheEntry
	done  chan struct{}
}

// Cache is the two-tier translation cache. Create it with New, start the
// persister with Init and stop it with Teardown.
type Cache struct {
	store     types.DurableStore
	ttl       time.Duration
	capacity  int
	now       func() time.Time
	logger    *zap.Logger
	metrics   *Metrics
	queueSize int

	mu  sync.RWMutex
	mem map[string]entry

	lifeMu  sync.RWMutex
	running bool
	ops     chan op
	done    chan struct{}

	hits, misses, evictions atomic.Uint64
}

// New creates a Cache over store. A nil store yields a memory-only cache.
func New(store types.DurableStore, opts Options) *Cache {
	c := &Cache{
		store:     store,
		ttl:       opts.TTL,
		capacity:  opts.Capacity,
		now:       opts.Now,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		queueSize: opts.QueueSize,
		mem:       make(map[string]entry),
	}
	if c.ttl <= 0 {
		c.ttl = types.DefaultCacheTTL
	}
	if c.capacity <= 0 {
		c.capacity = types.DefaultCacheCapacity
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if c.queueSize <= 0 {
		c.queueSize = defaultQueueSize
	}
	return c
}

// Init starts the persister goroutine. Calling Init on a running cache is a no-op.
func (c *Cache) Init() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.running {
		return
	}
	c.ops = make(chan op, c.queueSize)
	c.done = make(chan struct{})
	c.running = true
	go c.run(c.ops, c.done)
}

// Teardown persists every queued write and stops the persister. The cache
// stays usable afterwards; writes are then persisted inline.
func (c *Cache) Teardown() {
	c.lifeMu.Lock()
	if !c.running {
		c.lifeMu.Unlock()
		return
	}
	c.running = false
	close(c.ops)
	done := c.done
	c.lifeMu.Unlock()
	<-done
}

func (c *Cache) run(ops <-chan op, done chan<- struct{}) {
	defer close(done)
	for o := range ops {
		c.apply(o)
	}
}

// Get returns a fresh translation for key from memory, falling back to the
// durable tier. Durable hits are promoted into memory. Expired entries are
// reported as absent and purged.
func (c *Cache) Get(key string) (string, bool) {
	now := c.now()

	if text, ok := c.memoryLookup(key, now); ok {
		c.hit(tierMemory)
		return text, true
	}

	if c.store == nil {
		c.miss()
		return "", false
	}

	e, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			c.storeError("get", key, err)
		}
		c.miss()
		return "", false
	}
	if !e.Fresh(now, c.ttl) {
		c.enqueue(op{kind: opPurge, entry: e})
		c.miss()
		return "", false
	}

	c.mu.Lock()
	if cur, ok := c.mem[key]; !ok || !cur.storedAt.After(e.StoredAt) {
		c.mem[key] = entry{text: e.Text, storedAt: e.StoredAt}
	}
	c.metrics.MemoryEntries.Set(float64(len(c.mem)))
	c.mu.Unlock()

	c.hit(tierDurable)
	return e.Text, true
}

// Peek consults the in-memory tier only and never touches storage.
func (c *Cache) Peek(key string) (string, bool) {
	return c.memoryLookup(key, c.now())
}

func (c *Cache) memoryLookup(key string, now time.Time) (string, bool) {
	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if now.Sub(e.storedAt) < c.ttl {
		return e.text, true
	}

	c.mu.Lock()
	if cur, ok := c.mem[key]; ok && cur.storedAt.Equal(e.storedAt) {
		delete(c.mem, key)
		c.metrics.MemoryEntries.Set(float64(len(c.mem)))
	}
	c.mu.Unlock()
	return "", false
}

// Set stores text under key in memory and queues it for the durable tier.
func (c *Cache) Set(key, text string) {
	e := types.CacheEntry{Key: key, Text: text, StoredAt: c.now()}

	c.mu.Lock()
	c.mem[key] = entry{text: text, storedAt: e.StoredAt}
	c.metrics.MemoryEntries.Set(float64(len(c.mem)))
	c.mu.Unlock()

	c.enqueue(op{kind: opPut, entry: e})
}

// enqueue hands o to the persister, waiting for room when its queue is full,
// or applies it inline when the persister is not running. Durable writes are
// applied in the order they were queued.
func (c *Cache) enqueue(o op) {
	if c.store == nil {
		return
	}
	c.lifeMu.RLock()
	if c.running {
		c.ops <- o
		c.lifeMu.RUnlock()
		return
	}
	c.lifeMu.RUnlock()
	c.apply(o)
}

func (c *Cache) apply(o op) {
	switch o.kind {
	case opPut:
		c.persist(o.entry)
	case opPurge:
		c.purge(o.entry)
	case opFlush:
		close(o.done)
	}
}

// persist writes e and trims the durable tier back under capacity.
func (c *Cache) persist(e types.CacheEntry) {
	if err := c.store.Put(e); err != nil {
		c.storeError("put", e.Key, err)
		return
	}

	n, err := c.store.Count()
	if err != nil {
		c.storeError("count", e.Key, err)
		return
	}
	if n <= c.capacity {
		return
	}

	removed, err := c.store.EvictOldest(n - c.capacity)
	if err != nil {
		c.storeError("evict", e.Key, err)
		return
	}
	c.recordEvictions(reasonCapacity, len(removed))

	c.mu.Lock()
	for _, r := range removed {
		if cur, ok := c.mem[r.Key]; ok && !cur.storedAt.After(r.StoredAt) {
			delete(c.mem, r.Key)
		}
	}
	c.metrics.MemoryEntries.Set(float64(len(c.mem)))
	c.mu.Unlock()
}

// purge deletes an expired durable entry unless it was rewritten since it was read.
func (c *Cache) purge(stale types.CacheEntry) {
	cur, err := c.store.Get(stale.Key)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			c.storeError("get", stale.Key, err)
		}
		return
	}
	if !cur.StoredAt.Equal(stale.StoredAt) {
		return
	}
	if err := c.store.Delete(stale.Key); err != nil {
		c.storeError("delete", stale.Key, err)
		return
	}
	c.recordEvictions(reasonTTL, 1)
}

// Flush blocks until every durable write queued before the call is applied.
func (c *Cache) Flush() {
	c.lifeMu.RLock()
	if !c.running {
		c.lifeMu.RUnlock()
		return
	}
	done := make(chan struct{})
	c.ops <- op{kind: opFlush, done: done}
	c.lifeMu.RUnlock()
	<-done
}

// HydrateAll loads every fresh durable entry into memory in one pass and
// returns the loaded key to text mapping.
func (c *Cache) HydrateAll() map[string]string {
	loaded := make(map[string]string)
	if c.store == nil {
		return loaded
	}
	now := c.now()

	var fresh []types.CacheEntry
	err := c.store.Scan(func(e types.CacheEntry) error {
		if e.Fresh(now, c.ttl) {
			fresh = append(fresh, e)
		}
		return nil
	})
	if err != nil {
		c.storeError("scan", "", err)
	}

	c.mu.Lock()
	for _, e := range fresh {
		if cur, ok := c.mem[e.Key]; ok && cur.storedAt.After(e.StoredAt) {
			continue
		}
		c.mem[e.Key] = entry{text: e.Text, storedAt: e.StoredAt}
		loaded[e.Key] = e.Text
	}
	c.metrics.MemoryEntries.Set(float64(len(c.mem)))
	c.mu.Unlock()

	c.logger.Debug("cache hydrated", zap.Int("entries", len(loaded)))
	return loaded
}

// Clear empties both tiers. Pending writes are applied first so they cannot
// reappear after the clear. The error reports a durable-tier failure; memory
// is cleared regardless.
func (c *Cache) Clear() error {
	c.Flush()

	c.mu.Lock()
	c.mem = make(map[string]entry)
	c.metrics.MemoryEntries.Set(0)
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(); err != nil {
		c.storeError("clear", "", err)
		return err
	}
	return nil
}

// Len returns the number of entries in the in-memory tier.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// Stats returns current counters and tier sizes.
func (c *Cache) Stats() Stats {
	s := Stats{
		MemoryEntries:  c.Len(),
		DurableEntries: -1,
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Evictions:      c.evictions.Load(),
	}
	if c.store != nil {
		if n, err := c.store.Count(); err == nil {
			s.DurableEntries = n
		}
	}
	return s
}

func (c *Cache) hit(tier string) {
	c.hits.Add(1)
	c.metrics.Hits.WithLabelValues(tier).Inc()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	c.metrics.Misses.Inc()
}

func (c *Cache) recordEvictions(reason string, n int) {
	if n <= 0 {
		return
	}
	c.evictions.Add(uint64(n))
	c.metrics.Evictions.WithLabelValues(reason).Add(float64(n))
}

func (c *Cache) storeError(opName, key string, err error) {
	c.metrics.StoreErrors.WithLabelValues(opName).Inc()
	c.logger.Debug("durable tier unavailable",
		zap.String("op", opName),
		zap.String("key", key),
		zap.Error(err))
}
