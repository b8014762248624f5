package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"req-pool/pkg/metrics"
)

// Metrics 记录请求数、耗时与并发数
// 路径使用路由模板，未匹配的请求归入 unmatched
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.IncInFlight()
		defer m.DecInFlight()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

