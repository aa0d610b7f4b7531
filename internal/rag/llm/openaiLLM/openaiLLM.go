package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type llmClient struct {
	client    openai.Client
	modelName string
	defaults  llm.Options
	logger    *logger_i.Logger
}

func NewOpenAIClient(cfg config.LLMConfig, apikey string, httpClient *http.Client) llm.Provider {
	temperature, topP := cfg.Temperature, cfg.TopP
	c := &llmClient{
		client:    openai.NewClient(option.WithAPIKey(apikey), option.WithHTTPClient(httpClient)),
		modelName: cfg.Model,
		defaults:  llm.Options{Temperature: &temperature, TopP: &topP, MaxTokens: cfg.MaxTokens},
		logger:    logger_i.NewLogger("llm_openai"),
	}
	c.logger.Info("OpenAI client created", "model", cfg.Model)
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

func (c *llmClient) Complete(ctx context.Context, messages []examModel.Message, opts ...llm.Option) (string, error) {
	log := c.logger.FromContext(ctx)
	o := llm.Resolve(c.defaults, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model(o)),
		Messages: toOpenAIMessages(messages),
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.Temperature))
	}
	if o.TopP != nil {
		params.TopP = openai.Float(float64(*o.TopP))
	}
	if o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.MaxTokens))
	}
	if o.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []examModel.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case examModel.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case examModel.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
