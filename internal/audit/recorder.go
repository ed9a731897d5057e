package audit

import (
	"context"
	"sync"
	"time"

	"github.com/keyward/backend/internal/domain"
	"github.com/keyward/backend/internal/repository"
	"go.uber.org/zap"
)

const (
	// 队列容量，超出即丢弃并告警，绝不反压验证路径
	queueSize = 1024

	// 单条落盘超时
	writeTimeout = 5 * time.Second
)

// Recorder 请求日志异步记录器
// 验证路径只向有界队列投递，落盘由独立协程完成
type Recorder struct {
	logs   repository.RequestLogRepository
	logger *zap.Logger
	queue  chan *domain.RequestLog
	wg     sync.WaitGroup
}

// NewRecorder 创建记录器并启动落盘协程
func NewRecorder(logs repository.RequestLogRepository, logger *zap.Logger) *Recorder {
	r := &Recorder{
		logs:   logs,
		logger: logger,
		queue:  make(chan *domain.RequestLog, queueSize),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Record 投递一条请求日志
// 队列满时丢弃该条并告警，调用方永不阻塞
func (r *Recorder) Record(entry *domain.RequestLog) {
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("request log queue full, dropping entry",
			zap.String("team_id", entry.TeamID.String()),
			zap.String("outcome", entry.Outcome))
	}
}

// Close 停止接收并等待队列排空
// 必须在HTTP服务器停止之后调用
func (r *Recorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.logs.Create(ctx, entry); err != nil {
			r.logger.Error("failed to persist request log",
				zap.String("team_id", entry.TeamID.String()),
				zap.String("outcome", entry.Outcome),
				zap.Error(err))
		}
		cancel()
	}
}
