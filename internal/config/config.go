package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	GeoIP     GeoIPConfig
	RateLimit RateLimitConfig
	Crypto    CryptoConfig
	Retention RetentionConfig
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string
	Format     string // "json" or "console"
	OutputPath string
}

// MetricsConfig 监控指标配置
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// GeoIPConfig 地理位置解析协作方配置
type GeoIPConfig struct {
	BaseURL string
	// 单次解析的硬上限，协作方超时不拖累验证路径
	Timeout time.Duration
}

// RateLimitConfig 验证接口速率限制配置
type RateLimitConfig struct {
	Enabled bool
	// 每IP每分钟允许的验证请求数
	PerIPLimit int64
}

// CryptoConfig 密码学材料配置
type CryptoConfig struct {
	// 许可证查询键HMAC密钥，必填
	LookupSecret string
	// 静态数据加密密钥（64位十六进制），必填
	StorageKeyHex string
}

// RetentionConfig 数据保留配置
type RetentionConfig struct {
	// cron表达式
	Schedule string
	// 心跳记录最长保留时间
	HeartbeatMaxAge time.Duration
	// 请求日志最长保留时间
	RequestLogMaxAge time.Duration
}

// LoadConfig 从环境变量加载配置（Fx兼容）
func LoadConfig() (*Config, error) {
	return Load()
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "keyward"),
			Password:        getEnv("DB_PASSWORD", "keyward_dev_password"),
			DBName:          getEnv("DB_NAME", "keyward"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Port:    getEnvAsInt("METRICS_PORT", 9090),
		},
		GeoIP: GeoIPConfig{
			BaseURL: getEnv("GEOIP_BASE_URL", "http://localhost:8090/country"),
			Timeout: getEnvAsDuration("GEOIP_TIMEOUT", 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getEnvAsBool("RATE_LIMIT_ENABLED", true),
			PerIPLimit: int64(getEnvAsInt("RATE_LIMIT_PER_IP", 120)),
		},
		Crypto: CryptoConfig{
			LookupSecret:  getEnv("LICENSE_LOOKUP_SECRET", ""),
			StorageKeyHex: getEnv("STORAGE_ENCRYPTION_KEY", ""),
		},
		Retention: RetentionConfig{
			Schedule:         getEnv("RETENTION_SCHEDULE", "0 3 * * *"),
			// 请求日志保留期必须长于最大IP限制窗口（30天）
			HeartbeatMaxAge:  getEnvAsDuration("RETENTION_HEARTBEAT_MAX_AGE", 30*24*time.Hour),
			RequestLogMaxAge: getEnvAsDuration("RETENTION_REQUEST_LOG_MAX_AGE", 90*24*time.Hour),
		},
	}

	if cfg.Crypto.LookupSecret == "" {
		return nil, fmt.Errorf("LICENSE_LOOKUP_SECRET is required")
	}
	if _, err := cfg.Crypto.StorageKey(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN 生成PostgreSQL连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr 生成Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageKey 解析静态数据加密密钥
func (c *CryptoConfig) StorageKey() (*[32]byte, error) {
	raw, err := hex.DecodeString(c.StorageKeyHex)
	if err != nil {
		return nil, fmt.Errorf("STORAGE_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("STORAGE_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
