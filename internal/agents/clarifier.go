package agents

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
)

const clarifierPrompt = `You are a helpful tutor who explains educational concepts clearly to students.

Explain the following in a simple, clear, and accurate way.

%s

Clarification request:
%s

Explanation:`

type ClarifierAgent struct {
	llm    llm.Provider
	loader CollectionLoader
}

func NewClarifierAgent(p llm.Provider, loader CollectionLoader) *ClarifierAgent {
	return &ClarifierAgent{llm: p, loader: loader}
}

func (a *ClarifierAgent) Run(ctx context.Context, req Request) (string, error) {
	if req.Subject == "" || req.Grade == "" || req.Query == "" {
		return ErrorMarker + " 'subject', 'grade', and 'query' are required for clarification.", nil
	}

	retrieved, err := retrieveContext(ctx, a.loader, req.Subject, req.Grade, req.Query, config.AnswerK)
	if err != nil {
		return "", err
	}
	clause := "No relevant context found. Use general knowledge."
	if retrieved != "" {
		clause = "Use this context for explanation:\n\n" + retrieved
	}

	out, err := llm.Prompt(ctx, a.llm, "clarifier", fmt.Sprintf(clarifierPrompt, clause, req.Query))
	if err != nil {
		return "", fmt.Errorf("clarifying: %w", err)
	}
	return out, nil
}
