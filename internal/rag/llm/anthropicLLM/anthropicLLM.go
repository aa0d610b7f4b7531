package anthropicLLM

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

type llmClient struct {
	client    anthropic.Client
	modelName string
	defaults  llm.Options
	logger    *logger_i.Logger
}

func NewAnthropicClient(cfg config.LLMConfig, apikey string, httpClient *http.Client) llm.Provider {
	temperature := cfg.Temperature
	c := &llmClient{
		client:    anthropic.NewClient(anthropicopt.WithAPIKey(apikey), anthropicopt.WithHTTPClient(httpClient)),
		modelName: cfg.Model,
		defaults:  llm.Options{Temperature: &temperature, MaxTokens: cfg.MaxTokens},
		logger:    logger_i.NewLogger("llm_anthropic"),
	}
	c.logger.Info("Anthropic client created", "model", cfg.Model)
	return c
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) model(o llm.Options) string {
	if o.Model != "" {
		return o.Model
	}
	return c.modelName
}

// Complete ignores JSONResponse; the prompts already demand bare JSON.
func (c *llmClient) Complete(ctx context.Context, messages []examModel.Message, opts ...llm.Option) (string, error) {
	log := c.logger.FromContext(ctx)
	o := llm.Resolve(c.defaults, opts...)

	maxTokens := int64(o.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	system, turns := llm.SplitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model(o)),
		MaxTokens: maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if o.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*o.Temperature))
	}
	for _, m := range turns {
		if m.Role == examModel.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	rsp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		log.Error("Anthropic completion failed", "error", err)
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no response from Anthropic")
	}
	return b.String(), nil
}
