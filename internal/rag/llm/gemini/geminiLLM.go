package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	defaults  llm.Options
	logger    *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, apikey string, httpClient *http.Client) (llm.Provider, error) {
	logger := logger_i.NewLogger("llm_gemini")

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, HTTPClient: httpClient})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	temperature, topP := cfg.Temperature, cfg.TopP
	geminiClient := &llmClient{
		client:    c,
		modelName: cfg.Model,
		defaults:  llm.Options{Temperature: &temperature, TopP: &topP, MaxTokens: cfg.MaxTokens},
		logger:    logger,
	}
	logger.Info("Gemini client created", "model", cfg.Model)
	go closeClient(ctx, geminiClient)
	return geminiClient, nil
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
	if c.client == nil {
		return "", errors.New("gemini client is closed")
	}
	o := llm.Resolve(c.defaults, opts...)

	system, turns := llm.SplitSystem(messages)
	contentConfig := &genai.GenerateContentConfig{
		Temperature:     o.Temperature,
		TopP:            o.TopP,
		MaxOutputTokens: int32(o.MaxTokens),
	}
	if system != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if o.JSONResponse {
		contentConfig.ResponseMIMEType = "application/json"
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == examModel.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model(o), contents, contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	llm.logger.Info("Closing Gemini client")
	llm.client = nil
}
