package app

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/exam"
	"github.com/akolanti/ExamAPI/internal/rag"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/internal/rag/metadata"
	"github.com/akolanti/ExamAPI/internal/rag/pipeline"
	"github.com/akolanti/ExamAPI/internal/rag/providers"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/internal/rag/vectorstore"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

// App holds the RAG components shared by the API server and the CLI.
type App struct {
	Config    *config.AppConfig
	LLM       llm.Provider
	Embedder  embedding.Embedder
	VectorDB  vectorDB.DataProcessor
	Store     *vectorstore.Store
	Versioned *vectorstore.Versioned
	Pipeline  *pipeline.Pipeline
	Builder   *pipeline.VersionedBuilder
	ExamAgent *exam.Agent
	Router    *agents.Router
	RAG       rag.Service
}

// Build creates the providers from cfg and wires everything on top of them.
func Build(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	logger := logger_i.NewLogger("bootstrap")

	llmProvider, err := providers.NewLLM(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	embedder, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	db, err := providers.NewVectorDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	logger.Info("Providers ready", "llm", llmProvider.ModelName(), "embedding", embedder.ModelName(), "vectorBackend", cfg.VectorStore.Backend)

	return Wire(cfg, llmProvider, embedder, db), nil
}

// Wire assembles the application from already constructed providers.
func Wire(cfg *config.AppConfig, p llm.Provider, embedder embedding.Embedder, db vectorDB.DataProcessor) *App {
	store := vectorstore.NewStore(db, embedder, metadata.NewExtractor(p), cfg.VectorStore.Collection)
	versioned := vectorstore.NewVersioned(db, embedder, cfg.Pipeline.VersionedOutputDir)
	indexer := pipeline.New(cfg, ingest.NewFileParser(), ingest.NewChunker(cfg.Pipeline), store)
	cache := vectorstore.NewSemanticCache(db, embedder, config.SemanticCacheCollection, config.CacheSimilarityCutoff)

	builder := pipeline.NewVersionedBuilder(cfg, versioned)
	examAgent := exam.NewAgent(p, store, exam.ConfigFrom(cfg.Chat))
	router := agents.NewRouter(p, versioned, cache)

	return &App{
		Config:    cfg,
		LLM:       p,
		Embedder:  embedder,
		VectorDB:  db,
		Store:     store,
		Versioned: versioned,
		Pipeline:  indexer,
		Builder:   builder,
		ExamAgent: examAgent,
		Router:    router,
		RAG:       rag.NewService(examAgent, router, indexer, builder),
	}
}
