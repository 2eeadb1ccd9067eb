// 包 cache：查询结果的读穿缓存（Redis 优先，未启用时退回进程内 LRU）
package cache

import (
	"context"
	"errors"
	"time"

	"geo-directory/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Cache：按键存取已序列化的查询结果
// 约束：缓存故障不得影响查询本身，Get 出错视为未命中，Set 出错仅记录日志
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

// Redis：基于 go-redis 的共享缓存，多实例部署时命中率更高
type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rc: rc, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("cache_get_error", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := c.rc.Set(ctx, key, val, c.ttl).Err(); err != nil {
		logger.L().Warn("cache_set_error", "key", key, "err", err)
	}
}

// New：rc 非空时使用 Redis，否则使用容量为 capacity 的进程内 LRU
func New(rc *redis.Client, capacity int, ttl time.Duration) Cache {
	if rc != nil {
		return NewRedis(rc, ttl)
	}
	return NewLRU(capacity, ttl)
}
