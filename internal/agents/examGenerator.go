package agents

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
)

const (
	defaultExamQuestions = 10
	defaultExamType      = "final"
)

const examGeneratorPrompt = `You are an educational assistant generating exams for students.

Generate a %d-question %s exam for grade %s in the subject of %s.
%s

%s

Format the exam clearly, with numbered questions. Do not include answers.`

// ExamGeneratorAgent writes a whole exam in one call. The multi-stage pipeline lives in package exam.
type ExamGeneratorAgent struct {
	llm    llm.Provider
	loader CollectionLoader
}

func NewExamGeneratorAgent(p llm.Provider, loader CollectionLoader) *ExamGeneratorAgent {
	return &ExamGeneratorAgent{llm: p, loader: loader}
}

func (a *ExamGeneratorAgent) Run(ctx context.Context, req Request) (string, error) {
	if req.Subject == "" || req.Grade == "" {
		return ErrorMarker + " 'subject' and 'grade' are required.", nil
	}
	num := req.NumQuestions
	if num <= 0 {
		num = defaultExamQuestions
	}
	examType := req.ExamType
	if examType == "" {
		examType = defaultExamType
	}

	topicClause := ""
	query := req.Topic
	if req.Topic != "" {
		topicClause = fmt.Sprintf("Focus on the topic: %s.", req.Topic)
	} else {
		query = fmt.Sprintf("%s exam topics for grade %s", req.Subject, req.Grade)
	}

	retrieved, err := retrieveContext(ctx, a.loader, req.Subject, req.Grade, query, config.ExamRetrieveK)
	if err != nil {
		return "", err
	}
	contextClause := "No context available from database. Use general knowledge."
	if retrieved != "" {
		contextClause = "Use the following context for inspiration:\n\n" + retrieved
	}

	prompt := fmt.Sprintf(examGeneratorPrompt, num, examType, req.Grade, req.Subject, topicClause, contextClause)
	out, err := llm.Prompt(ctx, a.llm, "exam_generator", prompt)
	if err != nil {
		return "", fmt.Errorf("generating exam: %w", err)
	}
	return out, nil
}
