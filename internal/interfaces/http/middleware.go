package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// bearerAuth requires "Authorization: Bearer <token>". An empty token lets
// every request through unless required is set, in which case every request
// is refused.
func bearerAuth(token string, required bool, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" && !required {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		given := strings.TrimPrefix(header, bearerPrefix)
		if token == "" || !strings.HasPrefix(header, bearerPrefix) || !tokenMatches(given, token) {
			logger.Error("Unauthorized request", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "No autorizado",
			})
			return
		}

		c.Next()
	}
}

func tokenMatches(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}
