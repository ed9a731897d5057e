package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExpirationType 过期策略枚举
type ExpirationType string

const (
	ExpirationTypeNever    ExpirationType = "never"
	ExpirationTypeDate     ExpirationType = "date"
	ExpirationTypeDuration ExpirationType = "duration"
)

// License 许可证实体
// 查询只通过 (team_id, key_lookup) 进行；原始密钥以密文单独存放
type License struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_licenses_team_lookup" json:"team_id"`
	KeyLookup string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_licenses_team_lookup" json:"-"`
	KeyEnc    []byte    `gorm:"type:bytea;not null" json:"-"`

	Suspended bool `gorm:"not null;default:false" json:"suspended"`

	ExpirationType ExpirationType `gorm:"type:expiration_type_enum;not null;default:'never'" json:"expiration_type"`
	// DURATION类型首次验证前为空，首次验证时惰性激活
	ExpirationDate *time.Time `gorm:"index" json:"expiration_date,omitempty"`
	ExpirationDays *int       `json:"expiration_days,omitempty"`

	IPLimit *int `json:"ip_limit,omitempty"`
	Seats   *int `json:"seats,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	// 关联
	Customers []Customer `gorm:"many2many:license_customers" json:"customers,omitempty"`
	Products  []Product  `gorm:"many2many:license_products" json:"products,omitempty"`
}

// TableName 指定表名
func (License) TableName() string {
	return "licenses"
}

// HasCustomers 许可证是否绑定了客户
func (l *License) HasCustomers() bool {
	return len(l.Customers) > 0
}

// HasProducts 许可证是否绑定了产品
func (l *License) HasProducts() bool {
	return len(l.Products) > 0
}
