// Package projection serves locale-specific text to render paths. GetText
// answers immediately from memory or with the original text, and fills the
// translation cache in the background.
package projection

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/internal/cache"
	"github.com/mesh-intelligence/ull/pkg/types"
)

// Request describes one translation to produce.
// Text is the original-language text, written in SourceLocale.
type Request struct {
	Key          types.TranslationKey
	Text         string
	SourceLocale string
}

// Producer is the remote translation service. An error or an empty string
// means no translation is available.
type Producer interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, req Request) (string, error)

// Translate calls f.
func (f ProducerFunc) Translate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Options configures a Reader.
type Options struct {
	TargetLocale string
	Workers      int
	QueueSize    int
	FetchTimeout time.Duration
	Logger       *zap.Logger
	// OnResolved, when set, is called after a background fetch stores text.
	OnResolved func(key, text string)
}

const (
	defaultWorkers      = 4
	defaultQueueSize    = 128
	defaultFetchTimeout = 30 * time.Second
)

type task struct {
	key string
	req Request
}

// Reader is the read-through accessor over the translation cache.
type Reader struct {
	cache      *cache.Cache
	producer   Producer
	logger     *zap.Logger
	timeout    time.Duration
	workers    int
	queueSize  int
	onResolved func(key, text string)

	mu       sync.Mutex
	target   string
	inflight map[string]struct{}
	idle     *sync.Cond
	running  bool
	tasks    chan task
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Reader. Call Start before GetText can schedule fetches.
func New(c *cache.Cache, p Producer, opts Options) *Reader {
	r := &Reader{
		cache:      c,
		producer:   p,
		logger:     opts.Logger,
		timeout:    opts.FetchTimeout,
		workers:    opts.Workers,
		queueSize:  opts.QueueSize,
		onResolved: opts.OnResolved,
		target:     opts.TargetLocale,
		inflight:   make(map[string]struct{}),
	}
	r.idle = sync.NewCond(&r.mu)
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.timeout <= 0 {
		r.timeout = defaultFetchTimeout
	}
	if r.workers <= 0 {
		r.workers = defaultWorkers
	}
	if r.queueSize <= 0 {
		r.queueSize = defaultQueueSize
	}
	return r
}

// Start launches the background workers. Start on a running Reader is a no-op.
func (r *Reader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.tasks = make(chan task, r.queueSize)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(r.ctx, r.tasks)
	}
}

// Stop cancels outstanding fetches and waits for the workers to exit.
// Results of cancelled fetches are discarded.
func (r *Reader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	close(r.tasks)
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.inflight = make(map[string]struct{})
	r.idle.Broadcast()
	r.mu.Unlock()
}

// Wait blocks until no fetch is queued or running.
func (r *Reader) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.inflight) > 0 {
		r.idle.Wait()
	}
}

// TargetLocale returns the locale text is projected into.
func (r *Reader) TargetLocale() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// SetTargetLocale switches the projection locale for subsequent reads.
func (r *Reader) SetTargetLocale(locale string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = locale
}

// GetText returns the best text available now for field of the row
// (table, id): the cached translation into the target locale if one is
// fresh, else fallback. When no fresh translation is cached it schedules at
// most one background fetch per key. It never blocks on storage or network.
func (r *Reader) GetText(table, id, field, fallback, sourceLocale string) string {
	target := r.TargetLocale()
	key := types.TranslationKey{Table: table, RowID: id, Field: field, Locale: target}
	return r.project(key, fallback, sourceLocale)
}

// GetMeaningText is GetText keyed by meaning object, so every row that
// references the meaning shares one translation.
func (r *Reader) GetMeaningText(meaningID, field, fallback, sourceLocale string) string {
	target := r.TargetLocale()
	key := types.TranslationKey{MeaningID: meaningID, Field: field, Locale: target}
	return r.project(key, fallback, sourceLocale)
}

func (r *Reader) project(key types.TranslationKey, fallback, sourceLocale string) string {
	if key.Locale == "" || types.SameLanguage(key.Locale, sourceLocale) {
		return fallback
	}
	k := key.String()
	if text, ok := r.cache.Peek(k); ok {
		return text
	}
	r.schedule(k, Request{Key: key, Text: fallback, SourceLocale: sourceLocale})
	return fallback
}

// schedule enqueues a fetch for key unless one is already in flight.
func (r *Reader) schedule(key string, req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	if _, busy := r.inflight[key]; busy {
		return
	}
	select {
	case r.tasks <- task{key: key, req: req}:
		r.inflight[key] = struct{}{}
	default:
		r.logger.Debug("translation queue full, fetch dropped", zap.String("key", key))
	}
}

func (r *Reader) work(ctx context.Context, tasks <-chan task) {
	defer r.wg.Done()
	for t := range tasks {
		r.resolve(ctx, t)
		r.done(t.key)
	}
}

func (r *Reader) done(key string) {
	r.mu.Lock()
	delete(r.inflight, key)
	if len(r.inflight) == 0 {
		r.idle.Broadcast()
	}
	r.mu.Unlock()
}

// resolve consults the full cache, then the producer, and stores the result.
func (r *Reader) resolve(ctx context.Context, t task) {
	if ctx.Err() != nil {
		return
	}
	if _, ok := r.cache.Get(t.key); ok {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.producer.Translate(fetchCtx, t.req)
	if err != nil {
		r.logger.Debug("translation unavailable", zap.String("key", t.key), zap.Error(err))
		return
	}
	if text == "" || ctx.Err() != nil {
		return
	}

	r.cache.Set(t.key, text)
	if r.onResolved != nil {
		r.onResolved(t.key, text)
	}
}
