package api

import (
	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/storage"
)

// TokenGate validates the {token} path segment against an enabled,
// non-expired ApiToken (spec §6). A mismatch or expired/disabled token
// aborts the request with 403 before any handler runs.
func TokenGate(db *storage.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if err := db.ValidateToken(token); err != nil {
			c.AbortWithStatusJSON(403, gin.H{
				"success":      false,
				"errorCode":    403,
				"errorMessage": "invalid or expired token",
			})
			return
		}
		c.Next()
	}
}

// cors mirrors the teacher's permissive CORS middleware; compat API
// clients are media players and browsers alike.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
