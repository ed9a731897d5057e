package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyward/backend/internal/service"
)

// ValidationConfig 请求形状验证配置
type ValidationConfig struct {
	Enabled bool
	// 最大请求体大小（字节）
	MaxBodySize int64
	// 允许的Content-Type列表
	AllowedContentTypes []string
}

// Validator 请求形状验证中间件
// 形状不合法的请求在此终止，绝不触达存储层
type Validator struct {
	config *ValidationConfig
}

// NewValidator 创建验证中间件
func NewValidator(config *ValidationConfig) *Validator {
	// 设置默认值
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 64 * 1024
	}
	if len(config.AllowedContentTypes) == 0 {
		config.AllowedContentTypes = []string{
			"application/json",
		}
	}

	return &Validator{
		config: config,
	}
}

// Middleware 验证中间件处理函数
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.config.Enabled {
			c.Next()
			return
		}

		// 1. 验证Content-Type
		if c.Request.Method != http.MethodGet {
			contentType := c.ContentType()
			if contentType != "" && !v.isAllowedContentType(contentType) {
				rejectBadRequest(c)
				return
			}
		}

		// 2. 验证请求体大小
		if c.Request.ContentLength > v.config.MaxBodySize {
			rejectBadRequest(c)
			return
		}

		c.Next()
	}
}

// isAllowedContentType 检查Content-Type是否允许
func (v *Validator) isAllowedContentType(contentType string) bool {
	// 移除charset等参数
	contentType = strings.Split(contentType, ";")[0]
	contentType = strings.TrimSpace(contentType)

	for _, allowed := range v.config.AllowedContentTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// rejectBadRequest 以标准结果信封拒绝请求
func rejectBadRequest(c *gin.Context) {
	outcome := service.OutcomeBadRequest
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
