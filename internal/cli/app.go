package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ull/internal/cache"
	"github.com/mesh-intelligence/ull/internal/guard"
	"github.com/mesh-intelligence/ull/internal/meaning"
	"github.com/mesh-intelligence/ull/internal/memstore"
	"github.com/mesh-intelligence/ull/internal/producer"
	"github.com/mesh-intelligence/ull/internal/projection"
	pkgsqlite "github.com/mesh-intelligence/ull/pkg/sqlite"
	"github.com/mesh-intelligence/ull/pkg/types"
)

var errNoProducer = errors.New("translation producer not configured")

// openStore attaches the durable tier named by the backend setting. The
// caller must call the returned close function.
func (e *env) openStore() (types.DurableStore, func(), error) {
	cfg := e.settings.storeConfig()
	switch cfg.Backend {
	case types.BackendMemory:
		return memstore.New(), func() {}, nil
	default:
		store := pkgsqlite.NewStore()
		if err := store.Attach(cfg); err != nil {
			return nil, nil, fmt.Errorf("attach store: %w", err)
		}
		return store, func() { _ = store.Detach() }, nil
	}
}

// openCache builds a running cache over the durable tier. The returned close
// function persists queued writes and detaches the store.
func (e *env) openCache(reg prometheus.Registerer) (*cache.Cache, func(), error) {
	store, closeStore, err := e.openStore()
	if err != nil {
		return nil, nil, err
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := cache.New(store, cache.Options{
		TTL:      e.settings.CacheTTL,
		Capacity: e.settings.CacheCapacity,
		Logger:   e.logger.Named("cache"),
		Metrics:  cache.NewMetrics(reg),
	})
	c.Init()
	return c, func() {
		c.Teardown()
		closeStore()
	}, nil
}

func (e *env) newGuard() *guard.Guard {
	return guard.New(types.NewProtectedTables(e.settings.ProtectedTables),
		guard.WithLogger(e.logger.Named("guard")),
		guard.WithWarnOptional(e.settings.WarnOptional))
}

// newProducer returns the configured translation producer. Without an
// endpoint every fetch fails quietly and readers keep the original text.
func (e *env) newProducer() projection.Producer {
	p, err := producer.New(producer.Config{
		Endpoint: e.settings.ProducerEndpoint,
		APIKey:   e.settings.ProducerAPIKey,
		Timeout:  e.settings.ProducerTimeout,
	}, e.logger.Named("producer"))
	if err != nil {
		return projection.ProducerFunc(func(context.Context, projection.Request) (string, error) {
			return "", errNoProducer
		})
	}
	return p
}

// openMeaningClient connects to the meaning-object database.
func (e *env) openMeaningClient(ctx context.Context) (*meaning.Client, func(), error) {
	if e.settings.DatabaseDSN == "" {
		return nil, nil, userError("database.dsn is not configured (set it in config.yaml or ULL_DATABASE_DSN)")
	}
	svc, err := meaning.NewPGService(ctx, e.settings.DatabaseDSN, e.logger.Named("meaning"))
	if err != nil {
		return nil, nil, sysError("connect meaning service: %s", err)
	}
	if err := svc.Migrate(ctx); err != nil {
		svc.Close()
		return nil, nil, sysError("migrate meaning service: %s", err)
	}
	return meaning.NewClient(svc, e.logger.Named("meaning")), svc.Close, nil
}

// output writes v as indented JSON in --json mode and text otherwise.
func (e *env) output(cmd *cobra.Command, v any, text string) error {
	if !e.flags.jsonMode {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal JSON: %s", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
