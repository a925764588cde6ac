package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UnknownIP is recorded when the proxy headers name no client
const UnknownIP = "unknown"

// ClientIP is the first X-Forwarded-For entry, then X-Real-IP, else UnknownIP.
// The service runs behind a proxy that sets these headers.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(c.GetHeader("X-Real-IP")); xr != "" {
		return xr
	}
	return UnknownIP
}
