package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/gorm"
)

// RequestLogRepository 请求日志仓储接口
// 引擎侧只写；去重IP查询由快照读取承担
type RequestLogRepository interface {
	Create(ctx context.Context, entry *domain.RequestLog) error
	DistinctIPsSince(ctx context.Context, licenseID uuid.UUID, since time.Time) ([]string, error)
	// DeleteOlderThan 删除早于cutoff的日志，返回删除行数
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type requestLogRepository struct {
	db *gorm.DB
}

// NewRequestLogRepository 创建请求日志仓储实例
func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

func (r *requestLogRepository) Create(ctx context.Context, entry *domain.RequestLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *requestLogRepository) DistinctIPsSince(ctx context.Context, licenseID uuid.UUID, since time.Time) ([]string, error) {
	var ips []string
	err := r.db.WithContext(ctx).
		Model(&domain.RequestLog{}).
		Where("license_id = ? AND created_at >= ?", licenseID, since).
		Distinct("ip_address").
		Pluck("ip_address", &ips).Error
	return ips, err
}

func (r *requestLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.RequestLog{})
	return result.RowsAffected, result.Error
}
