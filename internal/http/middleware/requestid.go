package middleware

import (
	"time"

	"arcade_webapp/internal/logger"
	"arcade_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext tags every request with an id, attaches a request-scoped
// logger and the client IP to its context, and logs the outcome.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)

		ip := ClientIP(c)
		log := logger.With("request_id", id, "ip", ip)

		ctx := logger.NewContext(c.Request.Context(), log)
		ctx = service.ContextWithClientIP(ctx, ip)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", attrs...)
			return
		}
		log.Debug("request", attrs...)
	}
}
