package router

import (
	"github.com/gin-gonic/gin"
	"github.com/keyward/backend/cmd/license-api/internal/handler"
	"github.com/keyward/backend/cmd/license-api/internal/middleware"
	"github.com/keyward/backend/internal/metrics"
	sharedmw "github.com/keyward/backend/internal/middleware"
)

// SetupRouter 配置验证API路由
func SetupRouter(
	verifyHandler *handler.VerifyHandler,
	rateLimiter *middleware.RateLimiter,
	validator *sharedmw.Validator,
	m *metrics.Metrics,
) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORSMiddleware(middleware.NewCORSConfig()))
	r.Use(middleware.SecurityHeaders())
	r.Use(validator.Middleware())

	// 健康检查端点
	r.GET("/health", verifyHandler.Health)

	// API v1路由组
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/teams/{team_id}/verify - 验证许可证
		v1.POST("/teams/:team_id/verify", rateLimiter.Middleware(), verifyHandler.VerifyLicense)
	}

	return r
}
