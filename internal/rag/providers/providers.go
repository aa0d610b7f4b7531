package providers

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/customHttpClient"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/internal/rag/llm/anthropicLLM"
	"github.com/akolanti/ExamAPI/internal/rag/llm/gemini"
	"github.com/akolanti/ExamAPI/internal/rag/llm/openaiLLM"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/qdrantDB"
)

// NewLLM picks the chat model from cfg.LLM.Provider.
func NewLLM(ctx context.Context, cfg *config.AppConfig) (llm.Provider, error) {
	httpClient := customHttpClient.Shared()
	switch cfg.LLM.Provider {
	case "openai":
		return openaiLLM.NewOpenAIClient(cfg.LLM, cfg.API.OpenAIKey, httpClient), nil
	case "gemini":
		return gemini.NewGeminiClient(ctx, cfg.LLM, cfg.API.GoogleKey, httpClient)
	case "anthropic":
		return anthropicLLM.NewAnthropicClient(cfg.LLM, cfg.API.AnthropicKey, httpClient), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

func NewEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, error) {
	httpClient := customHttpClient.Shared()
	switch cfg.Embedding.Provider {
	case "openai":
		return openaiEmbedding.NewOpenAIEmbedder(cfg.Embedding, cfg.API.OpenAIKey, httpClient), nil
	case "google":
		return googleEmbedding.NewGoogleEmbedder(ctx, cfg.Embedding, cfg.API.GoogleKey, httpClient)
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

func NewVectorDB(ctx context.Context, cfg *config.AppConfig) (vectorDB.DataProcessor, error) {
	switch cfg.VectorStore.Backend {
	case "qdrant":
		return qdrantDB.NewQdrantClient(ctx, cfg.VectorStore)
	case "memory":
		return memoryDB.New(cfg.VectorStore.PersistDirectory)
	}
	return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorStore.Backend)
}
