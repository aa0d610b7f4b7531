package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	jobmodel "github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

func jobTimeout(jobType jobmodel.JobType) time.Duration {
	if jobType == jobmodel.JobTypeIngest {
		return config.IngestJobTimeout
	}
	return config.QueryJobTimeout
}

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType)+"_"+string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()
	log := logger.FromContext(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job, log)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job.CurrentStep = jobmodel.IngestInit
		job = _ragService.IngestDocument(ctx, job)
	case jobmodel.JobTypeRoute:
		job = _ragService.RouteRequest(ctx, job)
		saveTurn(ctx, job, log)
	default:
		job.CurrentStep = jobmodel.RedisCall
		job = _ragService.GenerateExam(ctx, job, loadHistory(ctx, job.ChatId, log))
		saveTurn(ctx, job, log)
	}

	job.EndTime = time.Now()
	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
	}
	saveJobState(ctx, job, log)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func loadHistory(ctx context.Context, chatId string, log *logger_i.Logger) []examModel.Message {
	if chatId == "" {
		return nil
	}
	history, err := _jobService.MessageStore.GetMessageHistory(ctx, chatId)
	if err != nil {
		log.Error("Failed to get message history", "error", err)
	}
	return history
}

// saveTurn records a successful exchange in the chat history; failed jobs leave it untouched.
func saveTurn(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if job.ChatId == "" || job.Status == jobmodel.JobStatusError {
		return
	}
	question := job.JobPayload.Question
	if question == "" && job.JobPayload.Route != nil {
		question = job.JobPayload.Route.Query
	}
	err := _jobService.MessageStore.AppendMessages(ctx, job.ChatId,
		examModel.UserMessage(question),
		examModel.AssistantMessage(job.JobPayload.Answer),
	)
	if err != nil {
		log.Error("Failed to save chat history", "error", err)
	}
}

func saveJobState(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job state", "error", err)
	}
}
