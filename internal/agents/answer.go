package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

const answerPrompt = `You are a helpful tutor AI that explains answers to exam questions.

Answer the following question(s) clearly and completely. If multiple, label them.

%s

Questions:
%s

Answers:`

// AnswerCache is satisfied by vectorstore.SemanticCache.
type AnswerCache interface {
	Get(ctx context.Context, question string) (string, bool)
	Put(ctx context.Context, question string, answer string) error
}

type AnswerAgent struct {
	llm    llm.Provider
	loader CollectionLoader
	cache  AnswerCache
	logger *logger_i.Logger
}

func NewAnswerAgent(p llm.Provider, loader CollectionLoader, cache AnswerCache) *AnswerAgent {
	return &AnswerAgent{llm: p, loader: loader, cache: cache, logger: logger_i.NewLogger("answer_agent")}
}

func (a *AnswerAgent) Run(ctx context.Context, req Request) (string, error) {
	if req.Subject == "" || req.Grade == "" || req.Question == "" {
		return ErrorMarker + " 'subject', 'grade', and 'question' are required.", nil
	}

	cacheKey := strings.Join([]string{req.Subject, req.Grade, req.Question}, " | ")
	if a.cache != nil {
		if answer, ok := a.cache.Get(ctx, cacheKey); ok {
			return answer, nil
		}
	}

	retrieved, err := retrieveContext(ctx, a.loader, req.Subject, req.Grade, req.Question, config.AnswerK)
	if err != nil {
		return "", err
	}
	clause := "No context found. Answer based on your knowledge."
	if retrieved != "" {
		clause = "Use this context to help answer:\n\n" + retrieved
	}

	answer, err := llm.Prompt(ctx, a.llm, "answer", fmt.Sprintf(answerPrompt, clause, req.Question))
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}

	if a.cache != nil {
		go func() {
			if err := a.cache.Put(context.WithoutCancel(ctx), cacheKey, answer); err != nil {
				a.logger.FromContext(ctx).Warn("Failed to cache answer", "error", err)
			}
		}()
	}
	return answer, nil
}
