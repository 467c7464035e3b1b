package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vault-indexer/internal/observability"
	"vault-indexer/internal/ratelimit"
)

// Header names checked by the middleware.
const (
	AdminSecretHeader = "X-Admin-Secret"
	StreamTokenHeader = "X-Stream-Token"
)

// requestMetrics records latency per matched route.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// requestLogger logs every request at debug and server errors at warn.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

// rateLimit rejects clients over their window, keyed by client IP and
// route. A limiter failure lets the request through.
func rateLimit(limiter ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP()+"|"+route)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			observability.RecordRateLimited(route)
			Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

// requireSecret aborts with 401 unless header matches secret. An empty
// secret rejects every request.
func requireSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			Error(c, http.StatusUnauthorized, "missing or invalid "+header, nil)
			return
		}
		c.Next()
	}
}
