package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-coursestore/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

// RequestLogger writes one line per request. Health and metrics checks are
// logged at debug so they do not drown the access log.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := append([]any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case route == "/healthcheck" || route == "/metrics":
			log.Debug("health request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
