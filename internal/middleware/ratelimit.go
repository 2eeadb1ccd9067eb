// 包 middleware：入口限流与 API 密钥认证
package middleware

import (
	"net/http"
	"sync"
	"time"

	"geo-directory/internal/utils"
)

// 文档注释：令牌桶限流（每秒）
// 背景：在流量峰值时对入口进行限速，避免缓存与数据库连接池被耗尽；按环境变量开关与速率配置。
// 约束：简化实现，不做队列排队，仅丢弃并返回 429。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Limit：令牌耗尽时返回 429
func (tb *TokenBucket) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			writeDetail(w, http.StatusTooManyRequests, "Too many requests.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitFromEnv：RATE_LIMIT_ENABLED=true 时按 RATE_LIMIT_QPS（默认 200）限流，否则原样返回
func RateLimitFromEnv(next http.Handler) http.Handler {
	if !utils.EnvBool("RATE_LIMIT_ENABLED", false) {
		return next
	}
	qps := utils.EnvInt("RATE_LIMIT_QPS", 200)
	if qps <= 0 {
		qps = 200
	}
	return NewTokenBucket(qps).Limit(next)
}
