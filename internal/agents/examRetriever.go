package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
)

const retrieverSystemPrompt = "You are a helpful assistant that retrieves exams from a database. " +
	"Use only the retrieved context to present a relevant exam or exam fragments."

const retrieverQAPrompt = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

const defaultRetrieveExamType = "any"

type ExamRetrieverAgent struct {
	llm    llm.Provider
	loader CollectionLoader
	k      int
}

func NewExamRetrieverAgent(p llm.Provider, loader CollectionLoader) *ExamRetrieverAgent {
	return &ExamRetrieverAgent{llm: p, loader: loader, k: config.ExamRetrieverK}
}

func (a *ExamRetrieverAgent) Run(ctx context.Context, req Request) (string, error) {
	if req.Subject == "" || req.Grade == "" {
		return ErrorMarker + " Missing subject or grade.", nil
	}
	examType := req.ExamType
	if examType == "" {
		examType = defaultRetrieveExamType
	}

	if a.loader == nil {
		return fmt.Sprintf("No data available for %s, %s", req.Subject, req.Grade), nil
	}
	collection, err := a.loader.Load(ctx, req.Subject, req.Grade)
	if err != nil {
		return "", err
	}
	if collection == nil {
		return fmt.Sprintf("No data available for %s, %s", req.Subject, req.Grade), nil
	}

	question := fmt.Sprintf("Retrieve a complete %s exam in %s for %s.", examType, req.Subject, req.Grade)
	chunks, err := collection.Search(ctx, question, a.k)
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", collection.Name, err)
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_exam_retriever", time.Since(start)) }()
	out, err := a.llm.Complete(ctx, []examModel.Message{
		examModel.SystemMessage(retrieverSystemPrompt),
		examModel.UserMessage(fmt.Sprintf(retrieverQAPrompt, strings.Join(parts, "\n\n"), question)),
	})
	if err != nil {
		return "", fmt.Errorf("retrieving exam: %w", err)
	}
	return strings.TrimSpace(out), nil
}
