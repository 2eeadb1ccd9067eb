package utils

import (
	"geo-directory/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试与手工注入场景
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromEnv：从环境变量打开 Redis 客户端，支持 REDIS_DB 选择
// 约束：REDIS_ENABLE=false 时返回 nil，调用方退回进程内缓存；REDIS_DB 解析失败时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if !EnvBool("REDIS_ENABLE", true) {
		logger.L().Info("redis_disabled")
		return nil
	}
	addr := EnvString("REDIS_HOST", "127.0.0.1") + ":" + EnvString("REDIS_PORT", "6379")
	db := EnvInt("REDIS_DB", 0)
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: EnvString("REDIS_PASS", ""), DB: db})
}
