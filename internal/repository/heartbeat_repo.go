package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HeartbeatRepository 心跳仓储接口
type HeartbeatRepository interface {
	// Upsert 按 (license_id, device_identifier) 原子创建或刷新心跳
	// 并发同设备心跳不会产生重复行
	Upsert(ctx context.Context, hb *domain.Heartbeat) error
	FindByLicense(ctx context.Context, licenseID uuid.UUID) ([]domain.Heartbeat, error)
	// DeleteStale 删除最后心跳早于cutoff的记录，返回删除行数
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type heartbeatRepository struct {
	db *gorm.DB
}

// NewHeartbeatRepository 创建心跳仓储实例
func NewHeartbeatRepository(db *gorm.DB) HeartbeatRepository {
	return &heartbeatRepository{db: db}
}

func (r *heartbeatRepository) Upsert(ctx context.Context, hb *domain.Heartbeat) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "license_id"}, {Name: "device_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_beat_at", "ip_address", "country", "updated_at",
			}),
		}).
		Create(hb).Error
}

func (r *heartbeatRepository) FindByLicense(ctx context.Context, licenseID uuid.UUID) ([]domain.Heartbeat, error) {
	var heartbeats []domain.Heartbeat
	err := r.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Order("last_beat_at DESC").
		Find(&heartbeats).Error
	return heartbeats, err
}

func (r *heartbeatRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_beat_at < ?", cutoff).
		Delete(&domain.Heartbeat{})
	return result.RowsAffected, result.Error
}
