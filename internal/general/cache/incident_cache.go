package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"live-nav/internal/domain/incident"
	"live-nav/internal/general/logger"
	"live-nav/internal/ports"
)

// IncidentCache decorates an IncidentRepository with a short-TTL Redis cache
// for the recent-incident window. Every in-flight session message asks for
// the same 30-minute window, so a few seconds of staleness buys a large cut
// in Postgres read amplification. Radius lookups are per-location and are not
// cached. Any Redis failure falls through to the inner repository.
type IncidentCache struct {
	inner  ports.IncidentRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewIncidentCache wraps inner with the Redis-backed recent-window cache.
func NewIncidentCache(inner ports.IncidentRepository, rdb *redis.Client, ttl time.Duration, logger *logger.Logger) *IncidentCache {
	return &IncidentCache{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

var _ ports.IncidentRepository = (*IncidentCache)(nil)

// ListRecent serves the recent window from Redis when fresh, otherwise from
// the inner repository, repopulating the cache on the way out.
func (c *IncidentCache) ListRecent(ctx context.Context, since time.Time, limit int) ([]incident.Incident, error) {
	key := recentKey(limit)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []incident.Incident
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// corrupt entry: drop it and fall through
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Debug(ctx, "incident_cache_miss", "Redis unavailable, falling through to Postgres", map[string]any{
			"key": key, "reason": err.Error(),
		})
	}

	incidents, err := c.inner.ListRecent(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(incidents); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Debug(ctx, "incident_cache_set_failed", "Failed to repopulate incident cache", map[string]any{
				"key": key, "reason": err.Error(),
			})
		}
	}

	return incidents, nil
}

// ListNear is a pass-through to the inner repository.
func (c *IncidentCache) ListNear(ctx context.Context, lat, lon, radiusMeters float64) ([]incident.Incident, error) {
	return c.inner.ListNear(ctx, lat, lon, radiusMeters)
}

// Invalidate drops the cached recent window; called when an incident event
// arrives on the bus so new hazards take effect before the TTL lapses.
func (c *IncidentCache) Invalidate(ctx context.Context, limit int) {
	if err := c.rdb.Del(ctx, recentKey(limit)).Err(); err != nil {
		c.logger.Debug(ctx, "incident_cache_invalidate_failed", "Failed to drop incident cache entry", map[string]any{
			"reason": err.Error(),
		})
	}
}

func recentKey(limit int) string {
	return fmt.Sprintf("incidents:recent:%d", limit)
}
