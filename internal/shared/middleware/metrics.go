package middleware

import (
	"time"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts, durations and in-flight gauge per route.
// Unmatched requests share a single label to keep cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.HTTPRequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		m.HTTPRequestsInFlight.Dec()
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
