package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// SecretBox 静态数据加密器
// 用于许可证原始密钥与团队私钥的存储加密，密文格式为 nonce(24) || box
type SecretBox struct {
	key *[32]byte
}

// NewSecretBox 创建加密器
func NewSecretBox(key *[32]byte) *SecretBox {
	return &SecretBox{key: key}
}

// Seal 加密明文
func (s *SecretBox) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, s.key), nil
}

// Open 解密密文
func (s *SecretBox) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, s.key)
	if !ok {
		return nil, fmt.Errorf("failed to open secretbox: ciphertext corrupted or wrong key")
	}
	return plaintext, nil
}
