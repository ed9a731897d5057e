package domain

import (
	"time"

	"github.com/google/uuid"
)

// IPLimitPeriod IP限制滚动窗口周期枚举
type IPLimitPeriod string

const (
	IPLimitPeriodDay   IPLimitPeriod = "day"
	IPLimitPeriodWeek  IPLimitPeriod = "week"
	IPLimitPeriodMonth IPLimitPeriod = "month"
)

// Window 返回周期对应的时间窗口，未知值按天处理
func (p IPLimitPeriod) Window() time.Duration {
	switch p {
	case IPLimitPeriodWeek:
		return 7 * 24 * time.Hour
	case IPLimitPeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TeamSettings 团队验证策略设置
// 每次验证都重新读取，严格模式与黑名单的变更立即生效
type TeamSettings struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"team_id"`

	// 严格匹配模式：对应关联轴存在实体时，标识符必须随请求提供
	StrictCustomers bool `gorm:"not null;default:false" json:"strict_customers"`
	StrictProducts  bool `gorm:"not null;default:false" json:"strict_products"`
	StrictReleases  bool `gorm:"not null;default:false" json:"strict_releases"`

	IPLimitPeriod        IPLimitPeriod `gorm:"type:ip_limit_period_enum;not null;default:'day'" json:"ip_limit_period"`
	DeviceTimeoutMinutes int           `gorm:"not null;default:10" json:"device_timeout_minutes"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// DeviceTimeout 返回心跳超时时长
func (s *TeamSettings) DeviceTimeout() time.Duration {
	return time.Duration(s.DeviceTimeoutMinutes) * time.Minute
}

// TableName 指定表名
func (TeamSettings) TableName() string {
	return "team_settings"
}
