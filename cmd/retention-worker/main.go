package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyward/backend/cmd/retention-worker/internal/tasks"
	"github.com/keyward/backend/internal/config"
	"github.com/keyward/backend/internal/database"
	"github.com/keyward/backend/internal/logger"
	"github.com/keyward/backend/internal/metrics"
	"github.com/keyward/backend/internal/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// 配置模块
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
		),

		// 数据库模块
		fx.Provide(
			database.NewPostgresDB,
			metrics.New,
		),

		// 仓储层
		fx.Provide(
			repository.NewHeartbeatRepository,
			repository.NewRequestLogRepository,
		),

		// 后台任务
		fx.Provide(
			tasks.NewRetentionTask,
		),

		// 启动清理调度器
		fx.Invoke(runRetentionWorker),
	)

	app.Run()
}

// runRetentionWorker 运行保留清理调度器
func runRetentionWorker(
	lifecycle fx.Lifecycle,
	log *zap.Logger,
	cfg *config.Config,
	retentionTask *tasks.RetentionTask,
) {
	ctx, cancel := context.WithCancel(context.Background())

	// 创建cron调度器
	c := cron.New()

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting retention worker",
				zap.String("schedule", cfg.Retention.Schedule),
			)

			if _, err := c.AddFunc(cfg.Retention.Schedule, func() {
				if err := retentionTask.Run(ctx); err != nil {
					log.Error("Retention task failed", zap.Error(err))
				}
			}); err != nil {
				return err
			}

			c.Start()

			log.Info("Retention worker started")
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info("Shutting down retention worker")
			cancel()
			c.Stop()
			return nil
		},
	})

	// 监听系统信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("Received shutdown signal")
		cancel()
	}()
}
