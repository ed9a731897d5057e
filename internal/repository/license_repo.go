package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/gorm"
)

// LicenseRepository 许可证仓储接口
type LicenseRepository interface {
	Create(ctx context.Context, license *domain.License) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.License, error)
	FindByLookupKey(ctx context.Context, teamID uuid.UUID, lookupKey string) (*domain.License, error)
	// ActivateExpiration 惰性激活DURATION许可证的过期时间
	// 条件更新：仅当expiration_date仍为空时写入，先写者胜，绝不读改写
	ActivateExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
}

type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository 创建许可证仓储实例
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) Create(ctx context.Context, license *domain.License) error {
	return r.db.WithContext(ctx).Create(license).Error
}

func (r *licenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	var license domain.License
	err := r.db.WithContext(ctx).
		Preload("Customers").
		Preload("Products").
		First(&license, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) FindByLookupKey(ctx context.Context, teamID uuid.UUID, lookupKey string) (*domain.License, error) {
	var license domain.License
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND key_lookup = ?", teamID, lookupKey).
		First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) ActivateExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.License{}).
		Where("id = ? AND expiration_date IS NULL", id).
		Update("expiration_date", expiresAt).Error
}
