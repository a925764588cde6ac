package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// maxAccountsBody caps POST /accounts bodies; the whole body is buffered to
// find the action
const maxAccountsBody = 1 << 20

// AuthRateLimit limits register and login attempts per client IP. The
// action is read from the JSON body, which is restored for the handler.
func AuthRateLimit(l *RateLimiter, max int, window time.Duration, actions ...string) gin.HandlerFunc {
	limited := make(map[string]bool, len(actions))
	for _, a := range actions {
		limited[a] = true
	}

	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAccountsBody+1))
		_ = c.Request.Body.Close()
		if len(body) > maxAccountsBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			c.Next()
			return
		}

		var peek struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(body, &peek) != nil || !limited[peek.Action] {
			c.Next()
			return
		}

		scope := "auth:" + peek.Action
		ok, n, err := l.Allow(c.Request.Context(), scope, ClientIP(c), max, window)
		if err != nil {
			c.Header("X-AuthRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-AuthRateLimit-Limit", strconv.Itoa(max))
		c.Header("X-AuthRateLimit-Remaining", strconv.FormatInt(remaining(max, n), 10))

		if !ok {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many " + peek.Action + " attempts",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
