package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"time"

	"user_api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// RateLimiterMiddleware implements a token bucket per client in Redis.
// Authenticated requests are keyed by user name, the rest by client IP.
// A Redis failure lets the request through.
func RateLimiterMiddleware(redisClient *redis.Client, scope string, config *RateLimiterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientRateLimiterKey(c, scope)
		now := float64(time.Now().UnixNano()) / float64(time.Second)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		allowed, err := tokenBucket.Run(ctx, redisClient, []string{key},
			config.Capacity,
			config.RefillRate,
			now,
		).Int64()
		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter Lua script")
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", fmt.Sprintf("%.0f", math.Ceil(1.0/config.RefillRate)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": http.StatusTooManyRequests,
				"data":  "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

func clientRateLimiterKey(c *gin.Context, scope string) string {
	if claims, err := auth.GetClaimsFromContext(c); err == nil {
		return fmt.Sprintf("rate_limiter:%s:user:%s", scope, claims.UserName)
	}
	return fmt.Sprintf("rate_limiter:%s:ip:%s", scope, c.ClientIP())
}
