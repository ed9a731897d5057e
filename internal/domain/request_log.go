package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog 验证请求日志，只追加，用于审计与统计
// 同时是IP限制器的数据来源：窗口内的去重IP计数
type RequestLog struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`

	LicenseID  *uuid.UUID `gorm:"type:uuid;index:idx_request_logs_license_created" json:"license_id,omitempty"`
	CustomerID *uuid.UUID `gorm:"type:uuid" json:"customer_id,omitempty"`
	ProductID  *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	ReleaseID  *uuid.UUID `gorm:"type:uuid" json:"release_id,omitempty"`

	KeyLookup        *string `gorm:"type:varchar(64)" json:"key_lookup,omitempty"`
	DeviceIdentifier *string `gorm:"type:varchar(255)" json:"device_identifier,omitempty"`
	IPAddress        string  `gorm:"type:varchar(45);not null" json:"ip_address"`
	Country          *string `gorm:"type:varchar(2)" json:"country,omitempty"`

	Outcome    string `gorm:"type:varchar(64);not null" json:"outcome"`
	HTTPStatus int    `gorm:"not null" json:"http_status"`

	CreatedAt time.Time `gorm:"not null;default:now();index:idx_request_logs_license_created" json:"created_at"`
}

// TableName 指定表名
func (RequestLog) TableName() string {
	return "request_logs"
}
