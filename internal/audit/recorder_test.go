package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*domain.RequestLog
	err     error
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *domain.RequestLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogRepo) DistinctIPsSince(ctx context.Context, licenseID uuid.UUID, since time.Time) ([]string, error) {
	return nil, nil
}

func (f *fakeLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestRecorderPersistsEntries(t *testing.T) {
	repo := &fakeLogRepo{}
	recorder := NewRecorder(repo, zap.NewNop())

	for i := 0; i < 25; i++ {
		recorder.Record(&domain.RequestLog{
			TeamID:    uuid.New(),
			IPAddress: "198.51.100.7",
			Outcome:   "VALID",
		})
	}

	// Close排空队列后所有条目都已落盘
	recorder.Close()
	require.Equal(t, 25, repo.count())
}

func TestRecorderSurvivesWriteFailures(t *testing.T) {
	repo := &fakeLogRepo{err: context.DeadlineExceeded}
	recorder := NewRecorder(repo, zap.NewNop())

	recorder.Record(&domain.RequestLog{TeamID: uuid.New(), IPAddress: "198.51.100.7", Outcome: "VALID"})
	recorder.Record(&domain.RequestLog{TeamID: uuid.New(), IPAddress: "198.51.100.7", Outcome: "VALID"})

	// 落盘失败只告警，不会让排空协程退出
	recorder.Close()
	require.Equal(t, 0, repo.count())
}
