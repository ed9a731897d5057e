package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyward/backend/internal/metrics"
)

// Metrics HTTP请求指标中间件
// 路径维度使用路由模板，避免按team_id产生基数爆炸
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
