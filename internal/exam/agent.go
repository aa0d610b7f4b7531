package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Searcher is satisfied by vectorstore.Store and vectorstore.Collection.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]commonModels.Chunk, error)
}

type Config struct {
	HistoryLength int
	RetrieveK     int
	// MaxFillConcurrency caps the per-exercise fan-out; 0 runs every exercise at once.
	MaxFillConcurrency int
	CompileMaxTokens   int
	SystemPrompt       string
}

func ConfigFrom(cfg config.ChatConfig) Config {
	return Config{
		HistoryLength:      cfg.HistoryLength,
		RetrieveK:          cfg.RetrieveK,
		MaxFillConcurrency: cfg.MaxFillConcurrency,
		CompileMaxTokens:   cfg.CompileMaxTokens,
		SystemPrompt:       DefaultSystemPrompt,
	}
}

type Agent struct {
	llm    llm.Provider
	store  Searcher
	cfg    Config
	logger *logger_i.Logger
}

func NewAgent(p llm.Provider, store Searcher, cfg Config) *Agent {
	if cfg.RetrieveK <= 0 {
		cfg.RetrieveK = config.ExamRetrieveK
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &Agent{
		llm:    p,
		store:  store,
		cfg:    cfg,
		logger: logger_i.NewLogger("exam_agent"),
	}
}

// NewHistory starts a conversation pinned to the agent's system prompt.
func (a *Agent) NewHistory() *examModel.History {
	return examModel.NewHistory(examModel.SystemMessage(a.cfg.SystemPrompt), a.cfg.HistoryLength)
}

// SendMessage turns a request into a compiled exam document.
// Only a malformed plan is fatal; an empty retrieval just means no reference context.
func (a *Agent) SendMessage(ctx context.Context, message string) (string, error) {
	log := a.logger.FromContext(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("exam_generation", time.Since(start)) }()

	log.Info("Retrieving relevant context")
	examContext, err := a.GetRelevantContext(ctx, message)
	if err != nil {
		return "", err
	}

	log.Info("Planning exam exercises")
	plan, err := a.plan(ctx, message, examContext)
	if err != nil {
		return "", err
	}

	log.Info("Filling exercises", "count", len(plan.Exercises))
	filled, err := a.fillExercises(ctx, plan, examContext)
	if err != nil {
		return "", err
	}

	log.Info("Compiling exam document")
	doc, err := a.compile(ctx, plan, filled)
	if err != nil {
		return "", err
	}
	log.Info("Exam generation complete")
	return doc, nil
}

// GetRelevantContext returns the top chunks for message formatted as one context block, or "" if nothing matched.
func (a *Agent) GetRelevantContext(ctx context.Context, message string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("exam_retrieve", time.Since(start)) }()

	if a.store == nil {
		return "", nil
	}
	chunks, err := a.store.Search(ctx, message, a.cfg.RetrieveK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	return FormatContext(chunks), nil
}

func FormatContext(chunks []commonModels.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		subject := c.Metadata.Subject
		if subject == "" {
			subject = "Unknown"
		}
		doc := c.Metadata.FullChunk
		if doc == "" {
			doc = c.Content
		}
		if doc == "" {
			doc = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("CHUNK %d (Subject: %s):\n%s\n\n%s%s\n\n", i+1, subject, contextRule, doc, contextRule))
	}
	return strings.Join(parts, "\n\n")
}

func (a *Agent) plan(ctx context.Context, message string, examContext string) (*examModel.ExamPlan, error) {
	reply, err := llm.Prompt(ctx, a.llm, "exam_plan", planPrompt(examContext, message), llm.WithJSONResponse())
	if err != nil {
		return nil, fmt.Errorf("requesting exam plan: %w", err)
	}
	plan, err := ParsePlan(reply)
	if err != nil {
		var perr *PlanParseError
		if errors.As(err, &perr) {
			a.logger.FromContext(ctx).Error("Exam plan rejected", "error", perr.Err, "raw", perr.Raw)
		}
		return nil, err
	}
	return plan, nil
}

// fillExercises runs filter+fill for every exercise concurrently and maps the results back to their plan keys.
func (a *Agent) fillExercises(ctx context.Context, plan *examModel.ExamPlan, examContext string) (map[string]string, error) {
	keys := plan.OrderedKeys()
	results := make([]string, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.MaxFillConcurrency > 0 {
		g.SetLimit(a.cfg.MaxFillConcurrency)
	}
	for i, key := range keys {
		exercise := plan.Exercises[key]
		g.Go(func() error {
			text, err := a.fillExercise(gctx, exercise, examContext)
			if err != nil {
				return fmt.Errorf("exercise %s: %w", key, err)
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filled := make(map[string]string, len(keys))
	for i, key := range keys {
		filled[key] = results[i]
	}
	return filled, nil
}

type filterDescriptor struct {
	Topic string `json:"topic"`
	Grade string `json:"grade"`
}

type fillDescriptor struct {
	Topic       string `json:"topic"`
	Grade       string `json:"grade"`
	Description string `json:"description"`
}

func (a *Agent) filterContext(ctx context.Context, exercise examModel.Exercise, examContext string) (string, error) {
	descriptor, err := json.Marshal(filterDescriptor{Topic: exercise.Topic, Grade: exercise.Grade})
	if err != nil {
		return "", err
	}
	return llm.Prompt(ctx, a.llm, "exam_filter", filterPrompt(string(descriptor), examContext))
}

func (a *Agent) fillExercise(ctx context.Context, exercise examModel.Exercise, examContext string) (string, error) {
	filtered, err := a.filterContext(ctx, exercise, examContext)
	if err != nil {
		return "", fmt.Errorf("filtering context: %w", err)
	}
	descriptor, err := json.Marshal(fillDescriptor{
		Topic:       exercise.Topic,
		Grade:       exercise.Grade,
		Description: exercise.Description,
	})
	if err != nil {
		return "", err
	}
	text, err := llm.Prompt(ctx, a.llm, "exam_fill", fillPrompt(string(descriptor), filtered))
	if err != nil {
		return "", fmt.Errorf("filling exercise: %w", err)
	}
	return text, nil
}

// AssembleExercises numbers the filled exercises in plan order.
func AssembleExercises(plan *examModel.ExamPlan, filled map[string]string) string {
	lines := make([]string, 0, len(filled))
	for idx, key := range plan.OrderedKeys() {
		lines = append(lines, fmt.Sprintf("Exercise %d\n%s\n", idx+1, filled[key]))
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) compile(ctx context.Context, plan *examModel.ExamPlan, filled map[string]string) (string, error) {
	var opts []llm.Option
	if a.cfg.CompileMaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(a.cfg.CompileMaxTokens))
	}
	doc, err := llm.Prompt(ctx, a.llm, "exam_compile", compilePrompt(AssembleExercises(plan, filled)), opts...)
	if err != nil {
		return "", fmt.Errorf("compiling exam: %w", err)
	}
	return doc, nil
}

// AskForClarification reports whether message lacks the subject, grade, scope or format of the exam.
func (a *Agent) AskForClarification(ctx context.Context, message string) (examModel.Clarification, error) {
	reply, err := llm.Prompt(ctx, a.llm, "exam_clarify", clarificationPrompt(message))
	if err != nil {
		return examModel.Clarification{}, fmt.Errorf("checking clarification: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(reply), clarificationSentinel) {
		return examModel.Clarification{Needed: false}, nil
	}
	return examModel.Clarification{Needed: true, Text: reply}, nil
}

// SuggestFollowUp asks for one question continuing the last few turns of history.
// An empty history yields "".
func (a *Agent) SuggestFollowUp(ctx context.Context, history *examModel.History) (string, error) {
	recent := history.RecentTurns(config.ResumeQuestionWindow)
	if len(recent) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		parts = append(parts, fmt.Sprintf("%s: %s", turnType(m.Role), m.Content))
	}
	question, err := llm.Prompt(ctx, a.llm, "exam_resume", resumePrompt(strings.Join(parts, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("suggesting follow-up: %w", err)
	}
	return question, nil
}

func turnType(r examModel.Role) string {
	switch r {
	case examModel.RoleUser:
		return "human"
	case examModel.RoleAssistant:
		return "ai"
	default:
		return string(r)
	}
}
