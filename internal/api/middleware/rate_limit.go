package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// RateLimiter 令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 添加新令牌
	rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.rate)

	// 檢查是否有可用令牌
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// ClientLimiter 每個來源 IP 各自一個令牌桶，閒置的桶會自動過期
type ClientLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	clients *gocache.Cache
}

// NewClientLimiter 創建依 IP 限流的限流器
func NewClientLimiter(requests int, window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		requests: requests,
		window:   window,
		clients:  gocache.New(2*window, 4*window),
	}
}

// Allow 檢查此 IP 是否允許請求
func (l *ClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	var limiter *RateLimiter
	if v, ok := l.clients.Get(ip); ok {
		limiter = v.(*RateLimiter)
	} else {
		limiter = NewRateLimiter(l.requests, l.window)
	}
	// 每次存取都延長存活時間
	l.clients.SetDefault(ip, limiter)
	l.mu.Unlock()

	return limiter.Allow()
}

// Middleware 限流中間件
func (l *ClientLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(l.window.Seconds()))))
			abort(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
