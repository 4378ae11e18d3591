package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// clientKey pulls the key from X-API-Key, falling back to a bearer token
// so field devices that only speak Authorization headers can scan too.
func clientKey(c *gin.Context) string {
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return key
	}
	authz := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return token
	}
	return ""
}

// APIKeyMiddleware guards the /v1 routes with the key from server.api_key
// (or the MPF_API_KEY override). An empty configured key disables auth,
// which is the expected mode for local development.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := clientKey(c)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
