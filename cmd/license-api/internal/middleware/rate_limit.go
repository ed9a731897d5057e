package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyward/backend/internal/cache"
	"github.com/keyward/backend/internal/config"
	"github.com/keyward/backend/internal/metrics"
	"github.com/keyward/backend/internal/service"
)

// Limiter 速率限制计数器接口
type Limiter interface {
	IncrementRateLimit(ctx context.Context, identifier string, limit int64) (int64, error)
}

// RateLimiter 验证接口的按IP速率限制中间件
// 固定窗口每分钟计数；超限响应刻意低细节，不确认许可证是否存在
type RateLimiter struct {
	cfg     config.RateLimitConfig
	limiter Limiter
	metrics *metrics.Metrics
}

// NewRateLimiter 创建速率限制中间件
func NewRateLimiter(cfg *config.Config, redisClient *cache.RedisClient, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg.RateLimit,
		limiter: redisClient,
		metrics: m,
	}
}

// Middleware 速率限制中间件处理函数
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.cfg.Enabled {
			c.Next()
			return
		}

		// 计数维度为 团队:来源IP，一个团队的突发不挤占其他团队的预算
		identifier := c.Param("team_id") + ":" + c.ClientIP()
		ctx := c.Request.Context()

		if _, err := r.limiter.IncrementRateLimit(ctx, identifier, r.cfg.PerIPLimit); err != nil {
			// 429只留给真正超出预算的请求；计数器本身的故障按基础设施错误处理
			if errors.Is(err, cache.ErrRateLimitExceeded) {
				r.handleRateLimitExceeded(c)
			} else {
				r.handleLimiterFailure(c)
			}
			return
		}

		c.Next()
	}
}

// handleRateLimitExceeded 处理速率限制超出
func (r *RateLimiter) handleRateLimitExceeded(c *gin.Context) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", r.cfg.PerIPLimit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("Retry-After", fmt.Sprintf("%d", int(cache.TTLRateLimit.Seconds())))

	r.metrics.RecordRateLimitRejection()
	r.metrics.RecordVerification(string(service.OutcomeRateLimit))

	c.JSON(service.OutcomeRateLimit.HTTPStatus(), gin.H{
		"data": nil,
		"result": gin.H{
			"timestamp": time.Now().UTC(),
			"valid":     false,
			"details":   service.OutcomeRateLimit.Details(),
		},
	})
	c.Abort()
}

// handleLimiterFailure 处理计数器基础设施故障
func (r *RateLimiter) handleLimiterFailure(c *gin.Context) {
	outcome := service.OutcomeInternalError
	r.metrics.RecordVerification(string(outcome))

	c.JSON(outcome.HTTPStatus(), gin.H{
		"data": nil,
		"result": gin.H{
			"timestamp": time.Now().UTC(),
			"valid":     false,
			"details":   outcome.Details(),
		},
	})
	c.Abort()
}
