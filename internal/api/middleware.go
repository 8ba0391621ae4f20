package api

import (
	"fmt"
	"strconv"
	"time"

	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/metrics"
	"menu-scorecard/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request once the handler has finished.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		}
		if c.FullPath() == "" {
			fields["path"] = c.Request.URL.Path
		}
		log.Debug("Request handled", fields)
	}
}

// Recovery turns a panic into an INTERNAL_ERROR response.
func Recovery(errs *apperrors.ErrorHandler) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		status, stdErr := errs.Resolve(c.FullPath(), fmt.Errorf("panic: %v", recovered))
		Fail(c, status, stdErr)
	})
}

// CORS allows the configured origins. An empty list or "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}

// RateLimit rejects clients that start too many analyses. A limiter error
// lets the request through.
func RateLimit(limiter ratelimit.Limiter, route string, errs *apperrors.ErrorHandler, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("Rate limiter failed, allowing request", map[string]interface{}{"route": route})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			metrics.RateLimited.WithLabelValues(route).Inc()
			c.Header("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds()+0.5)))
			status, stdErr := errs.Resolve(route, apperrors.NewRateLimitedError(d.RetryAfter))
			Fail(c, status, stdErr)
			return
		}
		c.Next()
	}
}
