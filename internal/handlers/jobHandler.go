package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/job"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
	examsPath  string
}

// InitJobHandler wires the queue and the RAG service used for the synchronous endpoints.
// Uploads are stored under examsPath.
func InitJobHandler(jobService *job.Service, ragService rag.Service, examsPath string) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService, examsPath: examsPath}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	log := logJH.With("traceId", newJob.traceId, "jobId", newJob.id, "jobType", newJob.jobType)
	log.Info("To create new job")
	if newJob.isNewChat {
		log.Info("Create new chat", "chatId", newJob.chatId)
		handlerInstance.initNewChat(newJob.chatId, newJob.traceId)
	}
	handlerInstance.pushToJobChannel(newJob, log)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// ValidateChatId accepts an empty id (a new chat) or one the message store knows.
func ValidateChatId(ctx context.Context, chatId string) bool {
	if handlerInstance == nil {
		return false
	}
	if chatId == "" {
		return true
	}
	logJH.Debug("Validating chat id", "chatId", chatId)
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatId)
}

func chatHistory(ctx context.Context, chatId string) ([]examModel.Message, error) {
	return handlerInstance.service.MessageStore.GetMessageHistory(ctx, chatId)
}

func appendToChat(ctx context.Context, chatId string, messages ...examModel.Message) {
	if chatId == "" || len(messages) == 0 {
		return
	}
	if err := handlerInstance.service.MessageStore.AppendMessages(ctx, chatId, messages...); err != nil {
		logJH.FromContext(ctx).Error("Failed to append chat messages", "chatId", chatId, "error", err)
	}
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData, log *logger_i.Logger) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobType = newJob.jobType
	_job.ChatId = newJob.chatId

	switch newJob.jobType {
	case jobModel.JobTypeIngest:
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestPath = newJob.documentSource
	case jobModel.JobTypeRoute:
		_job.CurrentStep = jobModel.UserQueryInit
		_job.JobPayload.Question = newJob.message
		_job.JobPayload.Route = newJob.route
	default:
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobModel.UserQueryInit
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		log.Error("Failed to save queued job", "error", err)
	}

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send keeps the queue bounded
	log.Info("Created new job")

	// one more worker every RequestsPerNewWorkerCount requests, and one per ingestion
	// since a pipeline pass can hold a worker for minutes; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount()
		log.Debug("Signalling dispatcher", "requestCount", accurateCount)
		h.service.DispatcherChannel <- true
	}
}

func (h *JobHandler) initNewChat(chatId string, traceId string) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	err := h.service.MessageStore.InitNewChat(ctxC, chatId)
	if err != nil {
		logJH.Error("Error initiating new chat", "chatId", chatId, "error", err)
		return
	}
}
