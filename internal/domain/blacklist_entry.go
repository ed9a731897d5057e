package domain

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistType 黑名单类型枚举
type BlacklistType string

const (
	BlacklistTypeIPAddress        BlacklistType = "ip_address"
	BlacklistTypeCountry          BlacklistType = "country"
	BlacklistTypeDeviceIdentifier BlacklistType = "device_identifier"
)

// BlacklistEntry 团队黑名单条目
// (team_id, type, value) 唯一；hits只增不减
type BlacklistEntry struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_blacklist_team_type_value" json:"team_id"`
	Type      BlacklistType `gorm:"type:blacklist_type_enum;not null;uniqueIndex:idx_blacklist_team_type_value" json:"type"`
	Value     string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_blacklist_team_type_value" json:"value"`
	Hits      int64         `gorm:"not null;default:0" json:"hits"`
	CreatedAt time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName 指定表名
func (BlacklistEntry) TableName() string {
	return "blacklist_entries"
}
