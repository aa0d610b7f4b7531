package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/pipeline"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

/*
The worker pool only knows Service. The private service struct holds the exam agent,
the intent router and the indexing pipeline, so the worker never reaches the model
or the vector store directly and tests can swap every dependency for a mock.
*/

// Service is everything a worker or a synchronous handler can ask of the RAG layer.
type Service interface {
	GenerateExam(ctx context.Context, job jobModel.Job, history []examModel.Message) jobModel.Job
	RouteRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Clarify(ctx context.Context, message string) (examModel.Clarification, error)
	SuggestFollowUp(ctx context.Context, history []examModel.Message) (string, error)
}

// ExamAgent is satisfied by exam.Agent.
type ExamAgent interface {
	SendMessage(ctx context.Context, message string) (string, error)
	AskForClarification(ctx context.Context, message string) (examModel.Clarification, error)
	SuggestFollowUp(ctx context.Context, history *examModel.History) (string, error)
	NewHistory() *examModel.History
}

// RequestRouter is satisfied by agents.Router.
type RequestRouter interface {
	Route(ctx context.Context, q agents.Query) (string, error)
}

// Indexer is satisfied by pipeline.Pipeline.
type Indexer interface {
	Run(ctx context.Context) *pipeline.Task
	Invalidate(source string) error
	Indexed(source string) bool
}

// CollectionBuilder is satisfied by pipeline.VersionedBuilder.
type CollectionBuilder interface {
	BuildDir(ctx context.Context, dir string) ([]string, error)
}

// ErrNotIndexed is reported when the pipeline finished without embedding the uploaded file.
var ErrNotIndexed = errors.New("document was not indexed")

type service struct {
	examAgent ExamAgent
	router    RequestRouter
	indexer   Indexer
	builder   CollectionBuilder
	logger    *logger_i.Logger
}

func NewService(examAgent ExamAgent, router RequestRouter, indexer Indexer, builder CollectionBuilder) Service {
	return &service{
		examAgent: examAgent,
		router:    router,
		indexer:   indexer,
		builder:   builder,
		logger:    logger_i.NewLogger("rag_service"),
	}
}

// GenerateExam runs the exam pipeline on the job question. history is only logged;
// generation does not depend on earlier turns.
func (s *service) GenerateExam(ctx context.Context, job jobModel.Job, history []examModel.Message) jobModel.Job {
	log := s.logger.FromContext(ctx).With("jobId", job.Id, "chatId", job.ChatId)
	log.Debug("Generating exam", "historyTurns", len(history))

	job = logOutput(job, jobModel.ExamPipeline, log)
	doc, err := s.examAgent.SendMessage(ctx, job.JobPayload.Question)
	if err != nil {
		return s.jobError(job, err, "EXAM_GENERATION_FAILURE")
	}
	return returnOutput(job, doc)
}

func (s *service) RouteRequest(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.FromContext(ctx).With("jobId", job.Id)

	job = logOutput(job, jobModel.RouteDispatch, log)
	if job.JobPayload.Route != nil {
		job.JobPayload.Intent = job.JobPayload.Route.Intent
	}
	answer, err := s.router.Route(ctx, toQuery(job.JobPayload))
	if err != nil {
		return s.jobError(job, err, "ROUTING_FAILURE")
	}
	return returnOutput(job, answer)
}

// IngestDocument indexes the uploaded file into the exam store, then rebuilds the
// subject and grade collections of the directory it was saved into.
// A re-uploaded file replaces its cached stage outputs first.
func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	source := job.JobPayload.IngestPath
	log := s.logger.FromContext(ctx).With("jobId", job.Id, "file", source)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	job = logOutput(job, jobModel.IngestPipeline, log)
	if err := s.indexer.Invalidate(source); err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE")
	}
	task := s.indexer.Run(ctx)
	if task.Background {
		log.Info("Indexing queued behind a running pass")
	}
	stats, err := task.Wait(ctx)
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE")
	}
	if !s.indexer.Indexed(source) {
		return s.jobError(job, fmt.Errorf("%w: %s", ErrNotIndexed, job.JobPayload.IngestFileName), "INGESTION_SKIPPED")
	}

	keys, err := s.builder.BuildDir(ctx, filepath.Dir(source))
	if err != nil {
		return s.jobError(job, err, "COLLECTION_BUILD_FAILURE")
	}
	log.Info("Document ingested", "collections", keys)

	job.JobPayload.Sources = []string{job.JobPayload.IngestFileName}
	return returnOutput(job, fmt.Sprintf("parsed %d, chunked %d, embedded %d files (%d chunks); collections: %s",
		stats.Parsed, stats.Chunked, stats.Embedded, stats.Chunks, strings.Join(keys, ", ")))
}

func (s *service) Clarify(ctx context.Context, message string) (examModel.Clarification, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("clarification", time.Since(start)) }()
	return s.examAgent.AskForClarification(ctx, message)
}

func (s *service) SuggestFollowUp(ctx context.Context, turns []examModel.Message) (string, error) {
	history := s.examAgent.NewHistory()
	for _, m := range turns {
		if m.Role != examModel.RoleSystem {
			history.Append(m)
		}
	}
	return s.examAgent.SuggestFollowUp(ctx, history)
}

func toQuery(p jobModel.JobPayload) agents.Query {
	if p.Route == nil {
		return agents.FreeText(p.Question)
	}
	return agents.Structured{
		Intent:       agents.Intent(p.Route.Intent),
		Query:        p.Route.Query,
		Subject:      p.Route.Subject,
		Grade:        p.Route.Grade,
		Topic:        p.Route.Topic,
		Question:     p.Route.Question,
		NumQuestions: p.Route.NumQuestions,
		ExamType:     p.Route.ExamType,
		QuestionType: p.Route.QuestionType,
	}
}
