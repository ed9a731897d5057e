package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/keyward/backend/internal/metrics"
	"github.com/keyward/backend/internal/service"
	"go.uber.org/zap"
)

// Verifier 验证引擎接口
type Verifier interface {
	Verify(ctx context.Context, req *service.VerifyRequest) *service.VerifyResult
}

// VerifyHandler 许可证验证HTTP处理器
type VerifyHandler struct {
	verifier Verifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewVerifyHandler 创建验证处理器实例
func NewVerifyHandler(verifier *service.VerifyService, m *metrics.Metrics, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{
		verifier: verifier,
		metrics:  m,
		logger:   logger,
	}
}

// verifyRequestBody 验证请求体
type verifyRequestBody struct {
	LicenseKey       string     `json:"licenseKey" binding:"required"`
	CustomerID       *uuid.UUID `json:"customerId"`
	ProductID        *uuid.UUID `json:"productId"`
	Version          string     `json:"version"`
	DeviceIdentifier string     `json:"deviceIdentifier"`
	Challenge        string     `json:"challenge"`
}

// Response 统一响应信封
type Response struct {
	Data   interface{}  `json:"data"`
	Result verifyResult `json:"result"`
}

type verifyResult struct {
	Timestamp         time.Time `json:"timestamp"`
	Valid             bool      `json:"valid"`
	Details           string    `json:"details"`
	ChallengeResponse string    `json:"challengeResponse,omitempty"`
}

// VerifyLicense 处理 POST /api/v1/teams/:team_id/verify
// 请求形状校验失败直接拒绝，绝不触达存储层
func (h *VerifyHandler) VerifyLicense(c *gin.Context) {
	// 1. 解析团队ID
	teamID, err := uuid.Parse(c.Param("team_id"))
	if err != nil {
		h.respondOutcome(c, service.OutcomeBadRequest, "")
		return
	}

	// 2. 解析请求体
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondOutcome(c, service.OutcomeBadRequest, "")
		return
	}

	// 3. 调用验证引擎，请求IP取自连接信息
	result := h.verifier.Verify(c.Request.Context(), &service.VerifyRequest{
		TeamID:           teamID,
		LicenseKey:       body.LicenseKey,
		CustomerID:       body.CustomerID,
		ProductID:        body.ProductID,
		Version:          body.Version,
		DeviceIdentifier: body.DeviceIdentifier,
		Challenge:        body.Challenge,
		IPAddress:        c.ClientIP(),
	})

	// 4. 返回判定结果
	h.metrics.RecordVerification(string(result.Outcome))
	c.JSON(result.Outcome.HTTPStatus(), Response{
		Data: nil,
		Result: verifyResult{
			Timestamp:         result.Timestamp,
			Valid:             result.Outcome.Valid(),
			Details:           result.Outcome.Details(),
			ChallengeResponse: result.ChallengeResponse,
		},
	})
}

// respondOutcome 返回无判定细节的结果信封
func (h *VerifyHandler) respondOutcome(c *gin.Context, outcome service.Outcome, challengeResponse string) {
	h.metrics.RecordVerification(string(outcome))
	c.JSON(outcome.HTTPStatus(), Response{
		Data: nil,
		Result: verifyResult{
			Timestamp:         time.Now().UTC(),
			Valid:             outcome.Valid(),
			Details:           outcome.Details(),
			ChallengeResponse: challengeResponse,
		},
	})
}

// Health 处理 GET /health
func (h *VerifyHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
