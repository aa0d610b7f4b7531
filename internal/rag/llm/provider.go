package llm

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/metrics"
)

type Provider interface {
	Complete(ctx context.Context, messages []examModel.Message, opts ...Option) (string, error)
	ModelName() string
}

type Options struct {
	Temperature  *float32
	TopP         *float32
	MaxTokens    int
	JSONResponse bool
	Model        string
}

type Option func(*Options)

func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithModel overrides the configured model for one call.
func WithModel(name string) Option {
	return func(o *Options) { o.Model = name }
}

// WithJSONResponse asks providers that support it to constrain the output to a JSON object.
func WithJSONResponse() Option {
	return func(o *Options) { o.JSONResponse = true }
}

// Resolve applies opts over the provider defaults.
func Resolve(defaults Options, opts ...Option) Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Prompt sends a single user message and returns the trimmed completion.
// label is the metrics label for the call.
func Prompt(ctx context.Context, p Provider, label string, prompt string, opts ...Option) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_"+label, time.Since(start)) }()

	out, err := p.Complete(ctx, []examModel.Message{examModel.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StripCodeFence removes a leading ``` or ```json line and a trailing ``` line.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitSystem separates system messages from the conversation for APIs that take them apart.
func SplitSystem(messages []examModel.Message) (string, []examModel.Message) {
	var system []string
	rest := make([]examModel.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == examModel.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
