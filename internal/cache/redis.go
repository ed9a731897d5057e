package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyward/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClient Redis客户端包装
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient 创建Redis客户端（Fx兼容）
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	return New(&cfg.Redis)
}

// New 创建Redis客户端
func New(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// 缓存键前缀
const (
	// 验证接口速率限制计数器（TTL: 1分钟）
	KeyVerifyRateLimit = "ratelimit:verify:"
)

// 速率限制窗口
const TTLRateLimit = 1 * time.Minute

// ErrRateLimitExceeded 速率限制超出
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// IncrementRateLimit 增加速率限制计数器
// INCR+EXPIRE在管道内原子执行；超过限制返回ErrRateLimitExceeded
func (r *RedisClient) IncrementRateLimit(ctx context.Context, identifier string, limit int64) (int64, error) {
	key := KeyVerifyRateLimit + identifier

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, TTLRateLimit)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	count := incr.Val()
	if count > limit {
		return count, fmt.Errorf("%w: %d/%d", ErrRateLimitExceeded, count, limit)
	}

	return count, nil
}

// GetRateLimitCount 获取当前速率限制计数
func (r *RedisClient) GetRateLimitCount(ctx context.Context, identifier string) (int64, error) {
	key := KeyVerifyRateLimit + identifier
	result, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return result, nil
}

// Close 关闭连接
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Client 获取原始Redis客户端（用于高级操作）
func (r *RedisClient) Client() *redis.Client {
	return r.client
}
