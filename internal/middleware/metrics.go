package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ludium-Official/ludium-world-payment/internal/metrics"
)

// Metrics 返回 Prometheus 指标记录中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点自身
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		// 使用模板路径, 避免高基数
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		metrics.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
