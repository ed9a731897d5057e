package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/gorm"
)

// VerificationSnapshot 单次一致性读取的结果
// 策略检查全部基于该快照进行，检查阶段本身不再访问存储
type VerificationSnapshot struct {
	Team    *domain.Team
	License *domain.License
	// 许可证的全部心跳记录，活跃性由读取方按超时窗口计算
	Heartbeats []domain.Heartbeat
	// IP限制窗口内请求日志中出现过的去重IP集合（仅在设置了ipLimit时加载）
	WindowIPs []string
}

// VerificationStore 验证上下文的一致性读取接口
// 团队、设置、密钥对、黑名单与许可证及其关联在同一事务内读取，
// 不允许拆成多个可能观察到许可证中间状态的独立查询
type VerificationStore interface {
	Load(ctx context.Context, teamID uuid.UUID, lookupKey string, now time.Time) (*VerificationSnapshot, error)
}

type verificationStore struct {
	db *gorm.DB
}

// NewVerificationStore 创建验证快照存储实例
func NewVerificationStore(db *gorm.DB) VerificationStore {
	return &verificationStore{db: db}
}

func (s *verificationStore) Load(ctx context.Context, teamID uuid.UUID, lookupKey string, now time.Time) (*VerificationSnapshot, error) {
	snapshot := &VerificationSnapshot{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 团队 + 设置 + 密钥对 + 黑名单
		var team domain.Team
		if err := tx.
			Preload("Settings").
			Preload("KeyPair").
			Preload("Blacklist").
			First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		snapshot.Team = &team

		// 2. 许可证及关联实体；版本只取已发布的投影
		var license domain.License
		if err := tx.
			Preload("Customers").
			Preload("Products").
			Preload("Products.Releases", "status = ?", domain.ReleaseStatusPublished).
			Where("team_id = ? AND key_lookup = ?", teamID, lookupKey).
			First(&license).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return err
		}
		snapshot.License = &license

		// 3. 心跳台账
		if err := tx.
			Where("license_id = ?", license.ID).
			Find(&snapshot.Heartbeats).Error; err != nil {
			return err
		}

		// 4. IP限制窗口内的去重IP集合
		if license.IPLimit != nil {
			cutoff := ipWindowCutoff(team.Settings, now)
			if err := tx.
				Model(&domain.RequestLog{}).
				Where("license_id = ? AND created_at >= ?", license.ID, cutoff).
				Distinct("ip_address").
				Pluck("ip_address", &snapshot.WindowIPs).Error; err != nil {
				return err
			}
		}

		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})

	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ipWindowCutoff 计算IP限制窗口的起点
// 设置行缺失时按默认的日窗口处理，与检查阶段的回退口径一致
func ipWindowCutoff(settings *domain.TeamSettings, now time.Time) time.Time {
	period := domain.IPLimitPeriodDay
	if settings != nil {
		period = settings.IPLimitPeriod
	}
	return now.Add(-period.Window())
}
