package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/ExamAPI/internal/rag/vectorstore"
)

type Intent string

const (
	IntentRetrieveExam      Intent = "retrieve_exam"
	IntentGenerateExam      Intent = "generate_exam"
	IntentGenerateQuestions Intent = "generate_questions"
	IntentAnswerQuestion    Intent = "answer_question"
	IntentClarify           Intent = "clarify"
)

var Intents = []Intent{
	IntentRetrieveExam,
	IntentGenerateExam,
	IntentGenerateQuestions,
	IntentAnswerQuestion,
	IntentClarify,
}

// ErrorMarker prefixes every user-facing failure an agent returns instead of an error.
const ErrorMarker = "❌"

const unknownIntentMarker = "❓"

// Request carries every field any agent reads. Agents check their own required fields.
type Request struct {
	Intent       Intent `json:"intent,omitempty"`
	Query        string `json:"query,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Grade        string `json:"grade,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Question     string `json:"question,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
	ExamType     string `json:"exam_type,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
}

// Query is what the router accepts: FreeText or Structured.
type Query interface {
	isQuery()
}

type FreeText string

type Structured Request

func (FreeText) isQuery()   {}
func (Structured) isQuery() {}

type Agent interface {
	Run(ctx context.Context, req Request) (string, error)
}

// CollectionLoader opens the collection for a (subject, grade) pair, nil when none was built.
type CollectionLoader interface {
	Load(ctx context.Context, subject string, grade string) (*vectorstore.Collection, error)
}

// retrieveContext joins the content of the top k chunks; "" when the collection is absent or empty.
func retrieveContext(ctx context.Context, loader CollectionLoader, subject string, grade string, query string, k int) (string, error) {
	if loader == nil {
		return "", nil
	}
	coll, err := loader.Load(ctx, subject, grade)
	if err != nil {
		return "", err
	}
	if coll == nil {
		return "", nil
	}
	chunks, err := coll.Search(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", coll.Name, err)
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}
