package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReleaseStatus 版本状态枚举
type ReleaseStatus string

const (
	ReleaseStatusDraft     ReleaseStatus = "draft"
	ReleaseStatusPublished ReleaseStatus = "published"
	ReleaseStatusArchived  ReleaseStatus = "archived"
)

// Release 产品的发布版本
type Release struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID uuid.UUID     `gorm:"type:uuid;not null;index" json:"product_id"`
	Version   string        `gorm:"type:varchar(255);not null" json:"version"`
	Status    ReleaseStatus `gorm:"type:release_status_enum;not null;default:'draft'" json:"status"`
	FileURL   *string       `gorm:"type:text" json:"file_url,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName 指定表名
func (Release) TableName() string {
	return "releases"
}
