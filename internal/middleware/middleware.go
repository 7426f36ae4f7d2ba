package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allowedHeaders lists the request headers the profile functions read
const allowedHeaders = "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, " +
	"language_id, timezone_offset, referral_code, product_id, code, X-Request-ID"

// CORS middleware for handling Cross-Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
