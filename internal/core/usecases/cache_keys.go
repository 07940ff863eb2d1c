package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

func recentPoolKey(limit int) string {
	return fmt.Sprintf("jobs:recent:%d", limit)
}

func jobKey(id string) string {
	return "jobs:id:" + id
}

// invalidateJob drops the cached candidate pool and, if id is set, the cached posting.
func invalidateJob(ctx context.Context, cache ports.CacheService, poolSize int, id string) {
	if cache == nil {
		return
	}
	_ = cache.Delete(ctx, recentPoolKey(poolSize))
	if id != "" {
		_ = cache.Delete(ctx, jobKey(id))
	}
}

// cachedBytes reads key from cache. Misses and cache failures are counted
// under op; a failing cache is treated as a miss.
func cachedBytes(ctx context.Context, cache ports.CacheService, op, key string) ([]byte, bool) {
	data, err := cache.Get(ctx, key)
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, ports.ErrCacheMiss):
		metrics.CacheMisses.WithLabelValues(op).Inc()
	default:
		metrics.CacheErrors.WithLabelValues(op).Inc()
		slog.WarnContext(ctx, "cache read failed", "operation", op, "key", key, "error", err)
	}
	return nil, false
}
