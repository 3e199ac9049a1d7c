// Package data provides data access layer implementations.
// It handles database connections, the offline queue and content caching.
package data

import (
	"ContentGuard/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewContentCache,
	NewMySQLClient,
	NewSanityClient,
	NewCMSRepo,
	NewAuditLogRepo,
	NewOfflineQueueRepo,
	NewMonitoringRepo,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient backs the offline deletion queue and the cache tier
	redisClient *redis.Client
	// cache is the two-tier content cache
	cache *ContentCache
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis connection failure does not prevent application startup (graceful degradation).
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, cache *ContentCache) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, offline queue and shared cache will be unavailable")
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis cleanup is handled by NewRedisClient's cleanup function
		// which is called automatically by Wire
	}

	return d, cleanup, nil
}

// GetCache returns the content cache for repository use.
func (d *Data) GetCache() *ContentCache {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
