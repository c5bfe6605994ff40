package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/cache"
)

// newStore returns nil when caching is disabled by config or --no-cache.
func newStore(ctx context.Context, cmd *cobra.Command, cfg *CacheConfig) (cache.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		return nil, nil
	}

	switch cfg.Backend {
	case cacheBackendS3:
		return cache.NewS3Store(ctx, cfg.S3)
	default:
		return cache.NewFileStore(cfg.Dir), nil
	}
}

// save stores the entry. Failures are logged and never abort the command.
func save(ctx context.Context, store cache.Store, entry cache.Entry, logger *zap.Logger) {
	if store == nil {
		logger.Debug("caching is disabled")
		return
	}

	location, err := store.Save(ctx, entry)
	if err != nil {
		logger.Warn("saving results to cache", zap.Error(err))
		return
	}

	logger.Info("results saved", zap.String("location", location))
}

func newEntry(gaps string) cache.Entry {
	return cache.NewEntry(time.Now(), gaps)
}
