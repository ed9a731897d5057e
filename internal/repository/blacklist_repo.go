package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/gorm"
)

// BlacklistRepository 黑名单仓储接口
type BlacklistRepository interface {
	Create(ctx context.Context, entry *domain.BlacklistEntry) error
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]domain.BlacklistEntry, error)
	// IncrementHits 命中计数器原子加一，绝不读改写
	IncrementHits(ctx context.Context, id uuid.UUID) error
}

type blacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository 创建黑名单仓储实例
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) Create(ctx context.Context, entry *domain.BlacklistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *blacklistRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]domain.BlacklistEntry, error) {
	var entries []domain.BlacklistEntry
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *blacklistRepository) IncrementHits(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.BlacklistEntry{}).
		Where("id = ?", id).
		UpdateColumn("hits", gorm.Expr("hits + 1")).Error
}
