package agents

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
)

const (
	defaultQuestionCount = 5
	defaultQuestionType  = "mixed"
)

const questionGeneratorPrompt = `You are a helpful assistant that creates exam questions for students.

Create %d %s questions for grade %s in %s on the topic of "%s".

%s

Format the output as a clean numbered list.`

type QuestionGeneratorAgent struct {
	llm    llm.Provider
	loader CollectionLoader
}

func NewQuestionGeneratorAgent(p llm.Provider, loader CollectionLoader) *QuestionGeneratorAgent {
	return &QuestionGeneratorAgent{llm: p, loader: loader}
}

func (a *QuestionGeneratorAgent) Run(ctx context.Context, req Request) (string, error) {
	if req.Subject == "" || req.Grade == "" || req.Topic == "" {
		return ErrorMarker + " 'subject', 'grade', and 'topic' are required.", nil
	}
	num := req.NumQuestions
	if num <= 0 {
		num = defaultQuestionCount
	}
	questionType := req.QuestionType
	if questionType == "" {
		questionType = defaultQuestionType
	}

	retrieved, err := retrieveContext(ctx, a.loader, req.Subject, req.Grade, req.Topic, config.QuestionGeneratorK)
	if err != nil {
		return "", err
	}
	clause := "No context found. Use general knowledge."
	if retrieved != "" {
		clause = "Use this context to help craft the questions:\n\n" + retrieved
	}

	prompt := fmt.Sprintf(questionGeneratorPrompt, num, questionType, req.Grade, req.Subject, req.Topic, clause)
	out, err := llm.Prompt(ctx, a.llm, "question_generator", prompt)
	if err != nil {
		return "", fmt.Errorf("generating questions: %w", err)
	}
	return out, nil
}
