package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/esa0624/CU-Blueboard/config"
	"github.com/esa0624/CU-Blueboard/utils"
)

const visitorIdle = 5 * time.Minute

// visitor pairs a token bucket with its last activity so idle clients can
// be evicted. rate.Limiter is safe for concurrent use on its own.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors   = map[string]*visitor{}
	visitorsMu sync.Mutex
)

// RateLimitMiddleware throttles requests per client IP. The bucket refills
// at RateLimitPerMinute from config with a half-minute burst allowance.
func RateLimitMiddleware() gin.HandlerFunc {
	perMinute := max(config.Get().RateLimitPerMinute, 1)
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)

	return func(ctx *gin.Context) {
		if !visitorLimiter(ctx.ClientIP(), limit, burst).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "too many requests, slow down")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func visitorLimiter(ip string, limit rate.Limit, burst int) *rate.Limiter {
	visitorsMu.Lock()
	defer visitorsMu.Unlock()

	now := time.Now()
	for key, v := range visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(visitors, key)
		}
	}

	v, ok := visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(limit, burst)}
		visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}
