package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"event-service/internal/response"
)

const internalAPIKeyHeader = "X-Internal-API-Key"

// InternalAuthMiddleware guards service-to-service endpoints with a shared
// API key. These endpoints bypass user auth because the caller is another
// backend acting after its own authorization checks.
func InternalAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(internalAPIKeyHeader)
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			response.SendUnauthorized(c, "Invalid internal API key")
			c.Abort()
			return
		}
		c.Next()
	}
}
