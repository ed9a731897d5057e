package tasks

import (
	"context"
	"time"

	"github.com/keyward/backend/internal/config"
	"github.com/keyward/backend/internal/metrics"
	"github.com/keyward/backend/internal/repository"
	"go.uber.org/zap"
)

// RetentionTask 数据保留清理任务
// 席位判定只看超时窗口内的心跳，过期行留在表里只占空间；
// 请求日志只有IP限制窗口和审计需要，超龄后同样可删
type RetentionTask struct {
	heartbeats  repository.HeartbeatRepository
	requestLogs repository.RequestLogRepository
	metrics     *metrics.Metrics
	cfg         config.RetentionConfig
	logger      *zap.Logger
}

// NewRetentionTask 创建保留清理任务
func NewRetentionTask(
	heartbeats repository.HeartbeatRepository,
	requestLogs repository.RequestLogRepository,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *RetentionTask {
	return &RetentionTask{
		heartbeats:  heartbeats,
		requestLogs: requestLogs,
		metrics:     m,
		cfg:         cfg.Retention,
		logger:      logger,
	}
}

// Run 执行一轮清理
func (t *RetentionTask) Run(ctx context.Context) error {
	now := time.Now().UTC()

	// 1. 清理过期心跳
	hbCutoff := now.Add(-t.cfg.HeartbeatMaxAge)
	hbDeleted, err := t.heartbeats.DeleteStale(ctx, hbCutoff)
	if err != nil {
		return err
	}
	t.metrics.RecordRetentionPrune("heartbeats", hbDeleted)

	// 2. 清理超龄请求日志
	logCutoff := now.Add(-t.cfg.RequestLogMaxAge)
	logsDeleted, err := t.requestLogs.DeleteOlderThan(ctx, logCutoff)
	if err != nil {
		return err
	}
	t.metrics.RecordRetentionPrune("request_logs", logsDeleted)

	t.logger.Info("Retention sweep completed",
		zap.Int64("heartbeats_deleted", hbDeleted),
		zap.Int64("request_logs_deleted", logsDeleted),
	)
	return nil
}
