package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyward/backend/cmd/license-api/internal/handler"
	"github.com/keyward/backend/cmd/license-api/internal/middleware"
	"github.com/keyward/backend/cmd/license-api/internal/router"
	"github.com/keyward/backend/internal/audit"
	"github.com/keyward/backend/internal/cache"
	"github.com/keyward/backend/internal/config"
	"github.com/keyward/backend/internal/crypto"
	"github.com/keyward/backend/internal/database"
	"github.com/keyward/backend/internal/geoip"
	"github.com/keyward/backend/internal/logger"
	"github.com/keyward/backend/internal/metrics"
	sharedmw "github.com/keyward/backend/internal/middleware"
	"github.com/keyward/backend/internal/repository"
	"github.com/keyward/backend/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// 配置模块
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
		),

		// 基础设施
		fx.Provide(
			database.NewPostgresDB,
			cache.NewRedisClient,
			metrics.New,
			geoip.NewResolver,
		),

		// 密码学组件
		fx.Provide(
			newLicenseHasher,
			newSecretBox,
		),

		// 仓储层
		fx.Provide(
			repository.NewVerificationStore,
			repository.NewLicenseRepository,
			repository.NewBlacklistRepository,
			repository.NewHeartbeatRepository,
			repository.NewRequestLogRepository,
		),

		// 请求日志记录器
		fx.Provide(
			audit.NewRecorder,
			func(r *audit.Recorder) service.Recorder { return r },
		),

		// 服务层
		fx.Provide(
			service.NewVerifyService,
		),

		// 处理器与中间件
		fx.Provide(
			handler.NewVerifyHandler,
			middleware.NewRateLimiter,
			newValidator,
		),

		// HTTP路由器
		fx.Provide(
			router.SetupRouter,
		),

		// 资源清理（先注册，停止时最后执行）
		fx.Invoke(registerCleanup),

		// HTTP服务器
		fx.Invoke(runHTTPServer),

		// 指标服务器
		fx.Invoke(runMetricsServer),
	)

	app.Run()
}

// newValidator 创建请求形状验证中间件
func newValidator() *sharedmw.Validator {
	return sharedmw.NewValidator(&sharedmw.ValidationConfig{
		Enabled: true,
	})
}

// newLicenseHasher 创建查询键派生器
func newLicenseHasher(cfg *config.Config) *crypto.LicenseHasher {
	return crypto.NewLicenseHasher(cfg.Crypto.LookupSecret)
}

// newSecretBox 创建静态数据加密器
func newSecretBox(cfg *config.Config) (*crypto.SecretBox, error) {
	key, err := cfg.Crypto.StorageKey()
	if err != nil {
		return nil, err
	}
	return crypto.NewSecretBox(key), nil
}

// registerCleanup 注册停止时的资源清理
// 记录器排空必须发生在HTTP服务器停止之后
func registerCleanup(
	lifecycle fx.Lifecycle,
	log *zap.Logger,
	db *gorm.DB,
	redisClient *cache.RedisClient,
	recorder *audit.Recorder,
) {
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Draining request log recorder")
			recorder.Close()

			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close redis client", zap.Error(err))
			}
			if err := database.Close(db); err != nil {
				log.Error("Failed to close database", zap.Error(err))
			}
			return nil
		},
	})
}

// runHTTPServer 启动HTTP服务器
func runHTTPServer(
	lifecycle fx.Lifecycle,
	log *zap.Logger,
	cfg *config.Config,
	engine *gin.Engine,
) {
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting license API",
				zap.Int("port", cfg.Server.Port),
			)

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down license API")

			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to gracefully shutdown server", zap.Error(err))
				return err
			}

			log.Info("License API stopped")
			return nil
		},
	})
}

// runMetricsServer 启动Prometheus指标服务器
func runMetricsServer(
	lifecycle fx.Lifecycle,
	log *zap.Logger,
	cfg *config.Config,
) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting metrics server",
				zap.Int("port", cfg.Metrics.Port),
			)

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("Metrics server stopped unexpectedly", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
