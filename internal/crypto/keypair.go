package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyPair Ed25519密钥对
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair 生成Ed25519密钥对
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyPair{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}

// SignChallenge 使用私钥对调用方提供的挑战串签名
// 仅在所有策略检查通过后调用，失败的验证绝不签名
func (kp *KeyPair) SignChallenge(challenge string) string {
	sig := ed25519.Sign(kp.PrivateKey, []byte(challenge))
	return base64.StdEncoding.EncodeToString(sig)
}

// VerifyChallenge 验证挑战签名（客户端侧逻辑，测试用）
func (kp *KeyPair) VerifyChallenge(challenge, signature string) bool {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(kp.PublicKey, []byte(challenge), sig)
}

// PublicKeyBase64 公钥的Base64编码
func (kp *KeyPair) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(kp.PublicKey)
}

// PrivateKeyFromBytes 从原始字节恢复私钥
func PrivateKeyFromBytes(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: expected %d, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// PublicKeyFromBase64 从Base64字符串解析公钥
func PublicKeyFromBase64(pub string) (ed25519.PublicKey, error) {
	publicKey, err := base64.StdEncoding.DecodeString(pub)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKey))
	}

	return ed25519.PublicKey(publicKey), nil
}
