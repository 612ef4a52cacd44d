package api

import (
	"net/http"
	"strconv"
	"time"

	"xrpl-iou-issuer-go/internal/metrics"
	"xrpl-iou-issuer-go/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			zap.L().Error("HTTP request", fields...)
		case status >= 400:
			zap.L().Warn("HTTP request", fields...)
		default:
			zap.L().Info("HTTP request", fields...)
		}
	}
}

// rateLimit applies a fixed window per client IP. A limiter that cannot
// answer lets the request through.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}

		decision, err := s.limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP(), s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			zap.L().Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			metrics.ObserveRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
