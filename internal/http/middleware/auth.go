package middleware

import (
	"net/http"
	"strings"

	"arcade_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// OptionalJWT verifies a bearer token when one is sent and exposes its claims
// through the request context. Requests without a token pass through; a bad
// token is rejected.
func OptionalJWT(tokens *service.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || tokens == nil {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("username", claims.Subject)
		c.Request = c.Request.WithContext(service.ContextWithClaims(c.Request.Context(), claims))
		c.Next()
	}
}
