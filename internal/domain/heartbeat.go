package domain

import (
	"time"

	"github.com/google/uuid"
)

// Heartbeat 设备心跳记录，即活跃席位台账
// (license_id, device_identifier) 唯一；每次验证原子upsert，过期由读取方计算
type Heartbeat struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LicenseID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_heartbeats_license_device" json:"license_id"`
	DeviceIdentifier string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_heartbeats_license_device" json:"device_identifier"`
	LastBeatAt       time.Time `gorm:"not null;index" json:"last_beat_at"`
	IPAddress        string    `gorm:"type:varchar(45);not null" json:"ip_address"`
	Country          *string   `gorm:"type:varchar(2)" json:"country,omitempty"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName 指定表名
func (Heartbeat) TableName() string {
	return "heartbeats"
}

// ActiveAt 判断在给定超时窗口内该设备是否仍占用席位
func (h *Heartbeat) ActiveAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(h.LastBeatAt) <= timeout
}
