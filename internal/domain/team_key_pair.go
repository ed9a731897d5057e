package domain

import (
	"time"

	"github.com/google/uuid"
)

// TeamKeyPair 团队的Ed25519密钥对
// 私钥以secretbox密文存储，仅在签发挑战响应时解密，从不离开引擎
type TeamKeyPair struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"team_id"`
	PublicKey     string    `gorm:"type:text;not null" json:"public_key"`
	PrivateKeyEnc []byte    `gorm:"type:bytea;not null" json:"-"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

// TableName 指定表名
func (TeamKeyPair) TableName() string {
	return "team_key_pairs"
}
