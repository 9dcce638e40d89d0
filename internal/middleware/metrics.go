package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradingcards/internal/metrics"
)

// Instrument records request count and latency per matched route, so
// /api/cards/:id is one series regardless of the id.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
