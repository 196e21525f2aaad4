package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestMiddleware returns a Gin middleware recording per-request
// duration and error counts, keyed by method and route.
func RequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		operation := c.Request.Method + " " + route

		RecordRequestDuration(c.Request.Context(), operation, time.Since(start).Seconds())

		status := c.Writer.Status()
		switch {
		case status >= 500:
			RecordError(c.Request.Context(), "server_error", operation)
		case status >= 400:
			RecordError(c.Request.Context(), "client_error", operation)
		}
	}
}
