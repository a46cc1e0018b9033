package api

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
)

// responseCache：Redis 响应缓存；客户端为 nil 时所有操作为空操作
// 约束：Redis 故障只记录日志，调用方回退到读库
type responseCache struct {
	rc  *redis.Client
	ttl time.Duration
}

const cachePrefix = "territory:"

func (c *responseCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	b, err := c.rc.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Debug("redis_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return b, true
}

func (c *responseCache) set(ctx context.Context, key string, b []byte) {
	if c == nil || c.rc == nil {
		return
	}
	if err := c.rc.Set(ctx, cachePrefix+key, b, c.ttl).Err(); err != nil {
		logger.L().Debug("redis_set_error", "key", key, "err", err)
	}
}
