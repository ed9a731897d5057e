package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product 产品实体
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	// 关联
	Releases []Release `gorm:"foreignKey:ProductID" json:"releases,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// PublishedReleases 返回已发布的版本，只有这些参与版本匹配
func (p *Product) PublishedReleases() []Release {
	published := make([]Release, 0, len(p.Releases))
	for _, r := range p.Releases {
		if r.Status == ReleaseStatusPublished {
			published = append(published, r)
		}
	}
	return published
}
