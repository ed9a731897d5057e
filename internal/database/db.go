package database

import (
	"fmt"
	"log"
	"time"

	"github.com/keyward/backend/internal/config"
	"github.com/keyward/backend/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB 创建数据库连接（Fx兼容）
func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	return New(&cfg.Database)
}

// New 创建数据库连接
func New(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = 100
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = maxOpenConns / 2
	}

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 首先创建ENUM类型，然后运行GORM AutoMigrate
	log.Println("Running database migrations...")
	if err := createEnumTypes(db); err != nil {
		return nil, fmt.Errorf("failed to create enum types: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed successfully")

	return db, nil
}

// createEnumTypes 创建PostgreSQL ENUM类型
func createEnumTypes(gormDB *gorm.DB) error {
	enums := []struct {
		name   string
		values string
	}{
		{"expiration_type_enum", "'never', 'date', 'duration'"},
		{"ip_limit_period_enum", "'day', 'week', 'month'"},
		{"blacklist_type_enum", "'ip_address', 'country', 'device_identifier'"},
		{"release_status_enum", "'draft', 'published', 'archived'"},
	}

	// 使用DO块创建ENUM类型（如果不存在）
	for _, enum := range enums {
		doBlock := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = '%s') THEN
					CREATE TYPE %s AS ENUM (%s);
				END IF;
			END$$;
		`, enum.name, enum.name, enum.values)

		if err := gormDB.Exec(doBlock).Error; err != nil {
			log.Printf("Warning: failed to create enum %s: %v", enum.name, err)
		}
	}

	return nil
}

// AutoMigrate 自动迁移所有模型（仅用于开发环境）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Team{},
		&domain.TeamSettings{},
		&domain.TeamKeyPair{},
		&domain.Customer{},
		&domain.Product{},
		&domain.Release{},
		&domain.License{},
		&domain.BlacklistEntry{},
		&domain.Heartbeat{},
		&domain.RequestLog{},
	)
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
