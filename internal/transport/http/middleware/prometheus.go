package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"anime-api/internal/metrics"
)

// Prometheus records request duration and count labelled by route template.
func Prometheus(metricsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == metricsPath {
			return
		}
		metrics.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}
