package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

const intentPrompt = `You are an intent classifier for an exam assistant.
Classify the user's request into one of these intents:
- retrieve_exam
- generate_exam
- generate_questions
- answer_question
- clarify

Respond ONLY with the intent name, nothing else.

User message: %s`

type Router struct {
	llm    llm.Provider
	agents map[Intent]Agent
	logger *logger_i.Logger
}

// NewRouter wires the five agents over the same provider and collections. cache may be nil.
func NewRouter(p llm.Provider, loader CollectionLoader, cache AnswerCache) *Router {
	return &Router{
		llm: p,
		agents: map[Intent]Agent{
			IntentRetrieveExam:      NewExamRetrieverAgent(p, loader),
			IntentGenerateExam:      NewExamGeneratorAgent(p, loader),
			IntentGenerateQuestions: NewQuestionGeneratorAgent(p, loader),
			IntentAnswerQuestion:    NewAnswerAgent(p, loader, cache),
			IntentClarify:           NewClarifierAgent(p, loader),
		},
		logger: logger_i.NewLogger("router"),
	}
}

// ClassifyIntent maps free text to an intent label. The label is not checked against Intents.
func (r *Router) ClassifyIntent(ctx context.Context, text string) (Intent, error) {
	reply, err := llm.Prompt(ctx, r.llm, "intent", fmt.Sprintf(intentPrompt, text), llm.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("classifying intent: %w", err)
	}
	return normaliseIntent(reply), nil
}

func normaliseIntent(s string) Intent {
	return Intent(strings.ToLower(strings.Trim(s, " \t\r\n.`'\"")))
}

// Route dispatches q to one agent. User-facing problems come back as marker strings;
// error is reserved for provider and store failures.
func (r *Router) Route(ctx context.Context, q Query) (string, error) {
	log := r.logger.FromContext(ctx)

	var (
		intent Intent
		req    Request
		err    error
	)
	switch q := q.(type) {
	case FreeText:
		intent, err = r.ClassifyIntent(ctx, string(q))
		if err != nil {
			return "", err
		}
	case Structured:
		req = Request(q)
		switch {
		case req.Intent != "":
			intent = normaliseIntent(string(req.Intent))
		case strings.TrimSpace(req.Query) != "":
			intent, err = r.ClassifyIntent(ctx, req.Query)
			if err != nil {
				return "", err
			}
		default:
			return ErrorMarker + " 'intent' or 'query' is required.", nil
		}
	default:
		return ErrorMarker + " Invalid input format.", nil
	}

	agent, ok := r.agents[intent]
	if !ok {
		log.Warn("Unknown intent", "intent", intent)
		return fmt.Sprintf("%s Unknown intent: %s", unknownIntentMarker, intent), nil
	}
	log.Info("Routing request", "intent", intent)
	return agent.Run(ctx, req)
}
