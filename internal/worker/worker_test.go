package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/job"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService tracks which entry point each job reached.
type MockRagService struct {
	ExamCount   int32
	RouteCount  int32
	IngestCount int32
	OnExam      func(ctx context.Context, j jobModel.Job, history []examModel.Message) jobModel.Job
}

func (m *MockRagService) GenerateExam(ctx context.Context, j jobModel.Job, history []examModel.Message) jobModel.Job {
	atomic.AddInt32(&m.ExamCount, 1)
	if m.OnExam != nil {
		return m.OnExam(ctx, j, history)
	}
	j.JobPayload.Answer = "exam"
	return j
}

func (m *MockRagService) RouteRequest(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.RouteCount, 1)
	j.JobPayload.Answer = "routed"
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.IngestCount, 1)
	return j
}

func (m *MockRagService) Clarify(ctx context.Context, message string) (examModel.Clarification, error) {
	return examModel.Clarification{}, nil
}

func (m *MockRagService) SuggestFollowUp(ctx context.Context, history []examModel.Message) (string, error) {
	return "", nil
}

type MockJobStore struct {
	mu        sync.Mutex
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
	Saved     []jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Saved) - 1; i >= 0; i-- {
		if m.Saved[i].Id == jobId {
			return m.Saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.Saved = append(m.Saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

// MockMessageStore handles chat history
type MockMessageStore struct {
	mu           sync.Mutex
	OnGetHistory func(ctx context.Context, chatId string) ([]examModel.Message, error)
	Appended     map[string][]examModel.Message
}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool {
	return true
}

func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error {
	return nil
}

func (m *MockMessageStore) AppendMessages(ctx context.Context, chatId string, messages ...examModel.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Appended == nil {
		m.Appended = map[string][]examModel.Message{}
	}
	m.Appended[chatId] = append(m.Appended[chatId], messages...)
	return nil
}

func (m *MockMessageStore) GetMessageHistory(ctx context.Context, id string) ([]examModel.Message, error) {
	if m.OnGetHistory != nil {
		return m.OnGetHistory(ctx, id)
	}
	return nil, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_Flow(t *testing.T) {
	jobStore := &MockJobStore{}
	messageStore := &MockMessageStore{OnGetHistory: func(context.Context, string) ([]examModel.Message, error) {
		return []examModel.Message{examModel.UserMessage("earlier")}, nil
	}}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
		MessageStore:      messageStore,
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) >= 1 })
	})

	t.Run("Jobs reach the matching service call", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "exam-1", ChatId: "c1", JobType: jobModel.JobTypeExam, JobPayload: jobModel.JobPayload{Question: "math exam"}}
		jobSvc.JobChannel <- jobModel.Job{Id: "route-1", JobType: jobModel.JobTypeRoute}
		jobSvc.JobChannel <- jobModel.Job{Id: "ingest-1", JobType: jobModel.JobTypeIngest}

		waitFor(t, func() bool {
			return atomic.LoadInt32(&mockRag.ExamCount) == 1 &&
				atomic.LoadInt32(&mockRag.RouteCount) == 1 &&
				atomic.LoadInt32(&mockRag.IngestCount) == 1
		})
		waitFor(t, func() bool {
			j, ok := jobStore.GetJob(context.Background(), "ingest-1")
			return ok && j.Status == jobModel.JobStatusComplete
		})

		messageStore.mu.Lock()
		defer messageStore.mu.Unlock()
		assert.Equal(t, []examModel.Message{
			examModel.UserMessage("math exam"),
			examModel.AssistantMessage("exam"),
		}, messageStore.Appended["c1"])
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_ErrorStatusIsKept(t *testing.T) {
	logger = logger_i.NewLogger("test_worker_pool")
	jobStore := &MockJobStore{}
	messageStore := &MockMessageStore{}
	InitServices(&job.Service{JobStore: jobStore, MessageStore: messageStore}, &MockRagService{
		OnExam: func(_ context.Context, j jobModel.Job, _ []examModel.Message) jobModel.Job {
			j.Status = jobModel.JobStatusError
			return j
		},
	})

	executeJob(jobModel.Job{Id: "bad-1", ChatId: "c9", JobType: jobModel.JobTypeExam})

	j, ok := jobStore.GetJob(context.Background(), "bad-1")
	require.True(t, ok)
	assert.Equal(t, jobModel.JobStatusError, j.Status)
	assert.Empty(t, messageStore.Appended["c9"], "failed jobs are not written to history")
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	idleTimeout = 20 * time.Millisecond
	logger = logger_i.NewLogger("test_worker_pool")
	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockRagService{})

	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	createWorker()
	waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) == 0 })
}
