package middleware

import (
	"crypto/subtle"
	"net/http"

	"dailymind-api/internal/config"
	"dailymind-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards admin endpoints with a shared API key. When no
// key is configured the endpoints stay open, matching local development.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.AppConfig.AdminAPIKey
		if expected == "" {
			c.Next()
			return
		}

		// Get admin key from header
		key := c.GetHeader("X-Admin-Key")

		// If not passed via header, try to get from query parameters
		if key == "" {
			key = c.Query("admin_key")
		}

		if key == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing admin key"))
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid admin key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
