package domain

import (
	"time"

	"github.com/google/uuid"
)

// Team 租户实体，所有许可证数据按团队隔离
type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	// 关联
	Settings  *TeamSettings    `gorm:"foreignKey:TeamID" json:"settings,omitempty"`
	KeyPair   *TeamKeyPair     `gorm:"foreignKey:TeamID" json:"-"`
	Blacklist []BlacklistEntry `gorm:"foreignKey:TeamID" json:"blacklist,omitempty"`
	Licenses  []License        `gorm:"foreignKey:TeamID" json:"-"`
}

// TableName 指定表名
func (Team) TableName() string {
	return "teams"
}
