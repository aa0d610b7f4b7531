package rag

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/exam"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("Job step", "currentStep", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	job.Error = classifyError(err)
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// classifyError maps a pipeline failure to what the client sees.
func classifyError(err error) jobModel.JobError {
	var planErr *exam.PlanParseError
	switch {
	case errors.As(err, &planErr):
		return jobModel.JobError{
			Code:    http.StatusBadGateway,
			Message: "The model returned an invalid exam plan",
			Retry:   true,
		}
	case errors.Is(err, ErrNotIndexed):
		return jobModel.JobError{
			Code:    http.StatusUnprocessableEntity,
			Message: "The document produced no indexable content",
			Retry:   false,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return jobModel.JobError{
			Code:    http.StatusGatewayTimeout,
			Message: "Request timed out",
			Retry:   true,
		}
	default:
		return jobModel.JobError{
			Code:    http.StatusInternalServerError,
			Message: "Internal Server Error",
			Retry:   true,
		}
	}
}
