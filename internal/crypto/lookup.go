package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// LicenseHasher 许可证查询键派生器
// 存储侧只保存HMAC摘要，原始密钥从不作为查询条件
type LicenseHasher struct {
	secret []byte
}

// NewLicenseHasher 创建查询键派生器
func NewLicenseHasher(secret string) *LicenseHasher {
	return &LicenseHasher{secret: []byte(secret)}
}

// LookupKey 计算 HMAC-SHA256(rawKey:teamId) 的十六进制摘要
// 确定性：相同输入永远产生相同输出，只用于等值查找
func (h *LicenseHasher) LookupKey(rawKey string, teamID uuid.UUID) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(rawKey))
	mac.Write([]byte(":"))
	mac.Write([]byte(teamID.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal 常数时间比较两个查询键
func (h *LicenseHasher) Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
