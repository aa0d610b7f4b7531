package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit  InternalStatus = "Init"
	RedisCall      InternalStatus = "Redis"
	ExamPipeline   InternalStatus = "ExamPipeline"
	RouteDispatch  InternalStatus = "RouteDispatch"
	IngestInit     InternalStatus = "IngestInit"
	IngestPipeline InternalStatus = "IngestPipeline"
	Error          InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeExam   JobType = "Exam"
	JobTypeRoute  JobType = "Route"
	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question string        `json:"question,omitempty"`
	Answer   string        `json:"answer,omitempty"`
	Sources  []string      `json:"sources,omitempty"`
	Route    *RoutePayload `json:"route,omitempty"`
	Intent   string        `json:"intent,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestPath     string `json:"ingest_path,omitempty"`
}

// RoutePayload is the structured form of a router request; Intent may be empty.
type RoutePayload struct {
	Intent       string `json:"intent,omitempty"`
	Query        string `json:"query,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Grade        string `json:"grade,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Question     string `json:"question,omitempty"`
	ExamType     string `json:"exam_type,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// MessageStore persists the conversational turns of a chat; the system message is never stored.
type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendMessages(ctx context.Context, chatId string, messages ...examModel.Message) error
	GetMessageHistory(ctx context.Context, chatId string) ([]examModel.Message, error)
}
