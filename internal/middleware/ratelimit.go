// 包 middleware：查询服务入口中间件（来源白名单、令牌桶限流、Bearer 鉴权）
package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
)

// 文档注释：令牌桶限流（每秒）
// 约束：不排队，超出即返回 429；每个自然秒整体补满
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
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

// Limit：用给定令牌桶包装处理器
func Limit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			metrics.RateLimitedTotal.Inc()
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按环境变量组装入口中间件（跨域 -> 限流 -> 来源白名单）
// 环境变量：RATE_LIMIT_ENABLED=true 开启限流，RATE_LIMIT_QPS 每秒上限（默认 200）；来源白名单见 AllowlistFromEnv，跨域见 CORSFromEnv
func Wrap(next http.Handler) http.Handler {
	h := AllowlistFromEnv(logger.L()).Wrap(next)
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		qps := 200
		if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				qps = n
			}
		}
		logger.L().Info("rate_limit_enabled", "qps", qps)
		h = Limit(NewTokenBucket(qps), h)
	}
	return CORSFromEnv().Wrap(h)
}
