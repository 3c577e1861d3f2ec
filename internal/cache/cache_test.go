package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ull/internal/memstore"
	"github.com/mesh-intelligence/ull/pkg/types"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// failingStore wraps a memstore and fails every operation while broken is set.
type failingStore struct {
	*memstore.Store
	mu     sync.Mutex
	broken bool
}

var errUnavailable = errors.New("storage disabled")

func (f *failingStore) setBroken(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = b
}

func (f *failingStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errUnavailable
	}
	return nil
}

func (f *failingStore) Put(e types.CacheEntry) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.Put(e)
}

func (f *failingStore) Get(key string) (types.CacheEntry, error) {
	if err := f.fail(); err != nil {
		return types.CacheEntry{}, err
	}
	return f.Store.Get(key)
}

func (f *failingStore) Count() (int, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.Store.Count()
}

func (f *failingStore) Scan(fn func(types.CacheEntry) error) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.Scan(fn)
}

func (f *failingStore) Clear() error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.Clear()
}

const ttl = 7 * 24 * time.Hour

func newTestCache(t *testing.T, store types.DurableStore, clock *fakeClock, capacity int) (*Cache, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	c := New(store, Options{TTL: ttl, Capacity: capacity, Now: clock.Now, Metrics: m})
	c.Init()
	t.Cleanup(c.Teardown)
	return c, m
}

func TestCache_SetGet(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c, m := newTestCache(t, store, clock, 0)

	_, ok := c.Get("tasks:1:title:fr")
	assert.False(t, ok)

	c.Set("tasks:1:title:fr", "Expédier le rapport")
	got, ok := c.Get("tasks:1:title:fr")
	require.True(t, ok)
	assert.Equal(t, "Expédier le rapport", got)

	c.Flush()
	e, err := store.Get("tasks:1:title:fr")
	require.NoError(t, err)
	assert.Equal(t, "Expédier le rapport", e.Text)
	assert.Equal(t, clock.Now(), e.StoredAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits.WithLabelValues(tierMemory)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Misses))
}

func TestCache_TTLBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "just inside ttl", elapsed: ttl - time.Nanosecond, want: true},
		{name: "one second before ttl", elapsed: ttl - time.Second, want: true},
		{name: "exactly at ttl", elapsed: ttl, want: false},
		{name: "one second after ttl", elapsed: ttl + time.Second, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			clock := newFakeClock()
			c, _ := newTestCache(t, store, clock, 0)

			c.Set("k", "v")
			c.Flush()
			clock.Advance(tt.elapsed)

			_, ok := c.Get("k")
			assert.Equal(t, tt.want, ok, "memory tier")

			// A fresh process sees only the durable tier.
			cold, _ := newTestCache(t, store, clock, 0)
			_, ok = cold.Get("k")
			assert.Equal(t, tt.want, ok, "durable tier")
		})
	}
}

func TestCache_ExpiredDurableEntryIsPurged(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	require.NoError(t, store.Put(types.CacheEntry{Key: "k", Text: "old", StoredAt: clock.Now()}))
	clock.Advance(ttl + time.Hour)

	c, m := newTestCache(t, store, clock, 0)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Flush()
	_, err := store.Get("k")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues(reasonTTL)))
}

func TestCache_PurgeSkipsRewrittenEntry(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c := New(store, Options{TTL: ttl, Now: clock.Now})

	stale := types.CacheEntry{Key: "k", Text: "old", StoredAt: clock.Now()}
	require.NoError(t, store.Put(stale))
	clock.Advance(ttl)
	require.NoError(t, store.Put(types.CacheEntry{Key: "k", Text: "new", StoredAt: clock.Now()}))

	c.purge(stale)

	e, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Text)
}

func TestCache_DurableHitIsPromoted(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	require.NoError(t, store.Put(types.CacheEntry{Key: "k", Text: "hola", StoredAt: clock.Now()}))

	c, m := newTestCache(t, store, clock, 0)
	_, ok := c.Peek("k")
	assert.False(t, ok, "peek must not read the durable tier")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hola", got)

	got, ok = c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "hola", got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits.WithLabelValues(tierDurable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MemoryEntries))
}

func TestCache_CapacityEvictsOldest(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	// Not started: every write is persisted inline, in order.
	c := New(store, Options{TTL: ttl, Capacity: types.DefaultCacheCapacity, Now: clock.Now})

	for i := 0; i <= types.DefaultCacheCapacity; i++ {
		c.Set(fmt.Sprintf("key-%04d", i), "text")
		clock.Advance(time.Millisecond)
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCacheCapacity, n)

	_, err = store.Get("key-0000")
	assert.ErrorIs(t, err, types.ErrNotFound, "oldest entry must be evicted")
	_, err = store.Get("key-0001")
	assert.NoError(t, err)
	_, err = store.Get(fmt.Sprintf("key-%04d", types.DefaultCacheCapacity))
	assert.NoError(t, err)

	_, ok := c.Peek("key-0000")
	assert.False(t, ok, "evicted entry must leave memory too")
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_CapacityWithBackgroundPersister(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c, m := newTestCache(t, store, clock, 10)

	for i := 0; i < 25; i++ {
		c.Set(fmt.Sprintf("k%02d", i), "x")
		clock.Advance(time.Second)
	}
	c.Flush()

	n, err := store.Count()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 10)

	for i := 15; i < 25; i++ {
		_, err := store.Get(fmt.Sprintf("k%02d", i))
		assert.NoError(t, err, "newest entries must survive")
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Evictions.WithLabelValues(reasonCapacity)), 15.0)
}

func TestCache_RefreshMovesEntryToYoungEnd(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c := New(store, Options{TTL: ttl, Capacity: 2, Now: clock.Now})

	c.Set("a", "1")
	clock.Advance(time.Second)
	c.Set("b", "1")
	clock.Advance(time.Second)
	c.Set("a", "2")
	clock.Advance(time.Second)
	c.Set("c", "1")

	_, err := store.Get("b")
	assert.ErrorIs(t, err, types.ErrNotFound)
	e, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", e.Text)
}

func TestCache_LastWriteWins(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c, _ := newTestCache(t, store, clock, 0)

	for i := 0; i < 50; i++ {
		c.Set("k", fmt.Sprintf("v%d", i))
	}
	c.Flush()

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v49", got)

	e, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v49", e.Text)
}

// gatedStore holds a Put of the gate key until release is closed.
type gatedStore struct {
	*memstore.Store
	gate    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Put(e types.CacheEntry) error {
	if e.Key == g.gate {
		close(g.entered)
		<-g.release
	}
	return g.Store.Put(e)
}

func TestCache_FullQueueKeepsWriteOrder(t *testing.T) {
	store := &gatedStore{
		Store:   memstore.New(),
		gate:    "gate",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	clock := newFakeClock()
	c := New(store, Options{TTL: ttl, Now: clock.Now, QueueSize: 1})
	c.Init()
	t.Cleanup(c.Teardown)

	c.Set("gate", "x")
	<-store.entered

	c.Set("k", "old")
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.Set("k", "new")
	}()

	select {
	case <-written:
		t.Fatal("Set returned while the persister queue was full")
	case <-time.After(20 * time.Millisecond):
	}
	close(store.release)
	<-written
	c.Flush()

	e, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Text)

	restarted := New(store, Options{TTL: ttl, Now: clock.Now})
	assert.Equal(t, "new", restarted.HydrateAll()["k"])
}

func TestCache_HydrateAll(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	require.NoError(t, store.Put(types.CacheEntry{Key: "stale", Text: "old", StoredAt: clock.Now()}))
	clock.Advance(ttl)
	require.NoError(t, store.Put(types.CacheEntry{Key: "fresh1", Text: "one", StoredAt: clock.Now()}))
	require.NoError(t, store.Put(types.CacheEntry{Key: "fresh2", Text: "two", StoredAt: clock.Now()}))
	clock.Advance(time.Minute)

	c, _ := newTestCache(t, store, clock, 0)
	loaded := c.HydrateAll()

	assert.Equal(t, map[string]string{"fresh1": "one", "fresh2": "two"}, loaded)
	assert.Equal(t, 2, c.Len())

	got, ok := c.Peek("fresh1")
	require.True(t, ok)
	assert.Equal(t, "one", got)
	_, ok = c.Peek("stale")
	assert.False(t, ok)
}

func TestCache_HydrateKeepsNewerMemoryEntry(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	require.NoError(t, store.Put(types.CacheEntry{Key: "k", Text: "durable", StoredAt: clock.Now()}))
	clock.Advance(time.Minute)

	c := New(store, Options{TTL: ttl, Now: clock.Now})
	c.mem["k"] = entry{text: "memory", storedAt: clock.Now()}

	loaded := c.HydrateAll()
	assert.Empty(t, loaded)
	got, _ := c.Peek("k")
	assert.Equal(t, "memory", got)
}

func TestCache_Clear(t *testing.T) {
	store := memstore.New()
	clock := newFakeClock()
	c, _ := newTestCache(t, store, clock, 0)

	c.Set("a", "1")
	c.Set("b", "2")
	require.NoError(t, c.Clear())

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_DegradesWhenStoreFails(t *testing.T) {
	store := &failingStore{Store: memstore.New()}
	store.setBroken(true)
	clock := newFakeClock()
	c, m := newTestCache(t, store, clock, 0)

	assert.NotPanics(t, func() { c.Set("k", "v") })
	c.Flush()

	got, ok := c.Get("k")
	require.True(t, ok, "memory tier must keep serving")
	assert.Equal(t, "v", got)

	_, ok = c.Get("other")
	assert.False(t, ok)

	assert.Empty(t, c.HydrateAll())
	assert.Error(t, c.Clear())
	assert.Equal(t, -1, c.Stats().DurableEntries)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StoreErrors.WithLabelValues("put")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StoreErrors.WithLabelValues("get")), 1.0)

	store.setBroken(false)
	c.Set("k2", "v2")
	c.Flush()
	_, err := store.Store.Get("k2")
	assert.NoError(t, err)
}

func TestCache_MemoryOnly(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache(t, nil, clock, 0)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.Empty(t, c.HydrateAll())
	assert.NoError(t, c.Clear())
	assert.Equal(t, -1, c.Stats().DurableEntries)
}

func TestCache_LifecycleIsRepeatable(t *testing.T) {
	store := memstore.New()
	c := New(store, Options{})

	c.Init()
	c.Init()
	c.Set("a", "1")
	c.Teardown()
	c.Teardown()

	// After teardown writes are persisted inline.
	c.Set("b", "2")
	_, err := store.Get("b")
	assert.NoError(t, err)

	c.Init()
	c.Set("c", "3")
	c.Teardown()
	n, _ := store.Count()
	assert.Equal(t, 3, n)
}

func TestCache_ConcurrentWritersOfDifferentKeys(t *testing.T) {
	store := memstore.New()
	c, _ := newTestCache(t, store, newFakeClock(), 0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				c.Set(key, key)
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()
	c.Flush()

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 400, n)
	e, err := store.Get("w3-17")
	require.NoError(t, err)
	assert.Equal(t, "w3-17", e.Text)
}
