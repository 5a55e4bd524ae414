// Package store selects the analyst's report cache backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HatiCode/skillhalflife/cmd/analyst/config"
	"github.com/HatiCode/skillhalflife/pkg/storage"
)

// New returns a memory or Redis store according to cfg.Storage. The
// returned store may implement Close and Stop; callers should check.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		logger.Info("using redis report cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.CacheTTL)
		s, err := storage.NewRedisStore(ctx, storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	case "memory", "":
		logger.Info("using in-memory report cache", "ttl", cfg.CacheTTL, "max_entries", cfg.CacheMaxItems)
		return storage.NewMemoryStore(storage.MemoryOptions{
			TTL:        cfg.CacheTTL,
			MaxEntries: cfg.CacheMaxItems,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
