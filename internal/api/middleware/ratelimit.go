package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/qs3c/yardconnect/internal/pkg/response"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter 按客户端 IP 做令牌桶限流
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time

	lastSweep time.Time
}

func NewIPLimiter(ratePerMinute float64, burst int) *IPLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(ratePerMinute / 60),
		burst:     burst,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// Allow 消耗 ip 的一个令牌
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.sweep(now)
	}

	return v.limiter.AllowN(now, 1)
}

// sweep 回收长时间不活跃的 IP，每个间隔最多执行一次
func (l *IPLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(l.visitors, key)
		}
	}
}

// RateLimit 限流中间件，ratePerMinute <= 0 时不限流
func RateLimit(ratePerMinute float64, burst int) gin.HandlerFunc {
	if ratePerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewIPLimiter(ratePerMinute, burst)
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.RateLimitError(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
