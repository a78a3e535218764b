package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"audioflow/internal/catalog"
	"audioflow/internal/core"
	"audioflow/internal/store"
	"audioflow/pkg/audiometa"
)

type idLister interface {
	IDs(ctx context.Context) ([]string, error)
}

type seeder interface {
	Seed(ctx context.Context, records []audiometa.Record) error
}

// backend is the metadata source selected by --resolver-mode.
type backend struct {
	mode   string
	lookup audiometa.Lookup
	// immutable catalogs may prime the cache's absent-id filter.
	immutable bool
	ready     func(ctx context.Context) error
	closeFn   func() error
	// cache is set by resolver when caching is enabled.
	cache *store.CachedLookup
}

func openBackend(ctx context.Context, cfg *core.Config) (*backend, error) {
	b := &backend{
		mode:    cfg.Resolver.Mode,
		closeFn: func() error { return nil },
	}

	switch cfg.Resolver.Mode {
	case core.ResolverModeStatic:
		b.lookup = catalog.NewStatic(catalog.DefaultRecords())
		b.immutable = true
	case core.ResolverModeRemote:
		b.lookup = audiometa.NewRemoteLookup(cfg.Resolver.Endpoint, cfg.Resolver.Timeout)
	case core.ResolverModeRedis:
		rc, err := catalog.NewRedisClient(ctx, &catalog.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis catalog: %w", err)
		}
		b.lookup = catalog.NewRedis(rc)
		b.ready = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
		b.closeFn = rc.Close
	case core.ResolverModeSQLite:
		db, err := catalog.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite catalog: %w", err)
		}
		b.lookup = db
		b.ready = db.Ping
		b.closeFn = db.Close
	default:
		return nil, fmt.Errorf("unknown resolver mode %q", cfg.Resolver.Mode)
	}

	return b, nil
}

func (b *backend) close() error {
	return b.closeFn()
}

// resolver wraps the backend with the cache and the configured failure policy.
func (b *backend) resolver(ctx context.Context, cfg *core.Config, logger *zap.Logger) (*audiometa.Resolver, error) {
	lookup := b.lookup

	if cfg.Resolver.CacheSize > 0 {
		cache, err := store.NewCachedLookup(lookup, cfg.Resolver.CacheSize)
		if err != nil {
			return nil, err
		}
		if lister, ok := b.lookup.(idLister); ok && b.immutable {
			ids, err := lister.IDs(ctx)
			if err != nil {
				logger.Warn("Failed to list catalog ids, cache stays unprimed", zap.Error(err))
			} else {
				cache.Prime(ids)
				logger.Debug("Primed lookup cache", zap.Int("ids", len(ids)))
			}
		}
		lookup = cache
		b.cache = cache
	}

	policy := audiometa.DefaultPolicy()
	policy.Strict = cfg.Resolver.Strict
	policy.FallbackDelay = cfg.Resolver.FallbackDelay

	return audiometa.NewResolver(lookup, policy, logger), nil
}
