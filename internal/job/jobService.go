package job

import (
	"errors"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/store"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

var ErrStoresOffline = errors.New("redis stores are offline and the in-memory fallback is disabled")

// Service is shared by the HTTP handlers, which queue jobs, and the worker pool, which runs them.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
	}
}

// SelectStores uses redis only when both stores came up; jobs and chats are never split
// between redis and memory. Nil arguments mean the store is offline.
func SelectStores(jobs *store.RedisJobStore, messages *store.RedisMessageStore, redisCfg config.RedisConfig, historyLength int) (jobModel.JobStore, jobModel.MessageStore, error) {
	logger := logger_i.NewLogger("job_service")
	if jobs != nil && messages != nil {
		logger.Info("Using redis stores", "addr", redisCfg.Addr)
		return jobs, messages, nil
	}
	if !redisCfg.Fallback {
		return nil, nil, ErrStoresOffline
	}
	logger.Warn("Redis stores are offline, using in-memory stores")
	return store.InitInMemoryJobStore(), store.InitMessageStore(historyLength), nil
}
