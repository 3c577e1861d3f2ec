package types

import (
	"errors"
	"time"
)

// Config holds durable-tier selection and cache parameters.
type Config struct {
	Backend       string        `json:"backend" yaml:"backend"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	CacheTTL      time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheCapacity int           `json:"cache_capacity" yaml:"cache_capacity"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Cache defaults.
const (
	DefaultCacheTTL      = 7 * 24 * time.Hour
	DefaultCacheCapacity = 5000
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrTTLInvalid      = errors.New("cache ttl must not be negative")
	ErrCapacityInvalid = errors.New("cache capacity must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed. Zero TTL and capacity are
// valid and mean "use the default".
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.CacheTTL < 0 {
		return ErrTTLInvalid
	}
	if c.CacheCapacity < 0 {
		return ErrCapacityInvalid
	}
	return nil
}

// TTL returns the configured cache TTL or DefaultCacheTTL.
func (c Config) TTL() time.Duration {
	if c.CacheTTL <= 0 {
		return DefaultCacheTTL
	}
	return c.CacheTTL
}

// Capacity returns the configured durable-tier ceiling or DefaultCacheCapacity.
func (c Config) Capacity() int {
	if c.CacheCapacity <= 0 {
		return DefaultCacheCapacity
	}
	return c.CacheCapacity
}
