package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/telemetry"
)

// RequestMetrics records request counts and latency per route template, so
// /post/:id stays one series regardless of the id.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		telemetry.HTTPRequestsTotal.With(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDurationSeconds.With(method, route).Observe(time.Since(start).Seconds())
	}
}
