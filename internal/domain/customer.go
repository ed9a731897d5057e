package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer 客户实体，可选地绑定到许可证
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
