package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tier labels.
const (
	tierMemory  = "memory"
	tierDurable = "durable"
)

// Eviction reasons.
const (
	reasonTTL      = "ttl"
	reasonCapacity = "capacity"
)

// Metrics holds the Prometheus collectors for one Cache.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        prometheus.Counter
	Evictions     *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
	MemoryEntries prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ull_cache_hits_total",
				Help: "Translation cache hits by tier",
			},
			[]string{"tier"},
		),
		Misses: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ull_cache_misses_total",
				Help: "Translation cache misses across both tiers",
			},
		),
		Evictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ull_cache_evictions_total",
				Help: "Entries removed from the durable tier",
			},
			[]string{"reason"},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ull_cache_store_errors_total",
				Help: "Durable tier operations that failed and were ignored",
			},
			[]string{"op"},
		),
		MemoryEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ull_cache_memory_entries",
				Help: "Entries currently held in the in-memory tier",
			},
		),
	}
}
