package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/codeduel/duel-backend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 사용자별 요청 제한. 인증 전이면 IP 기준.
// 저장소 오류 시 요청을 허용 (fail-open)
func RateLimit(limiter ratelimit.Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":ip:" + c.ClientIP()
		if userID := c.GetString(ContextUserID); userID != "" {
			key = scope + ":user:" + userID
		}

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit: %d", d.Limit),
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
