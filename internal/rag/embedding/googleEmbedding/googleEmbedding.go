package googleEmbedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/ExamAPI/internal/adapter/utils"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"google.golang.org/genai"
)

const taskType = "RETRIEVAL_DOCUMENT"

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	batchSize int
	logger    *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, cfg config.EmbeddingConfig, apikey string, httpClient *http.Client) (embedding.Embedder, error) {
	logger := logger_i.NewLogger("google_embedding")
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, HTTPClient: httpClient})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
		return nil, fmt.Errorf("creating google embedding client: %w", err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.EmbeddingBatchSize
	}
	logger.Info("Google Embedding client created", "model", cfg.Model)
	return &client{
		genAi:     c,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

func (c *client) ModelName() string {
	return c.model
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.FromContext(ctx)

	result, err := c.doCall(ctx, genai.Text(query))
	if err != nil {
		log.Error("Error getting regular Embeddings from Google", "error", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("google returned no embedding")
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isLargeDataSet bool) ([][]float32, error) {
	log := c.logger.FromContext(ctx)
	if len(chunks) == 0 {
		return nil, nil
	}

	if !isLargeDataSet {
		results := make([][]float32, 0, len(chunks))
		for start := 0; start < len(chunks); start += c.batchSize {
			end := min(start+c.batchSize, len(chunks))
			vectors, err := c.embedSlice(ctx, chunks[start:end], log)
			if err != nil {
				return nil, err
			}
			results = append(results, vectors...)
		}
		return results, nil
	}

	src := genai.EmbeddingsBatchJobSource{InlinedRequests: c.getInlinedBatchRequests(chunks)}
	displayName := utils.GetNewUUID()

	log = log.With("batchJob", displayName, "chunks", len(chunks))
	job, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &src, &genai.CreateEmbeddingsBatchJobConfig{DisplayName: displayName})
	if err != nil {
		log.Error("Error getting batch Embeddings from Google", "error", err)
		return nil, err
	}

	answer, err := c.pollForAnswer(ctx, job.Name, log)
	if err != nil {
		return nil, err
	}
	return downloadAnswerFromClient(answer, len(chunks), log)
}

func (c *client) embedSlice(ctx context.Context, chunks []string, log *logger_i.Logger) ([][]float32, error) {
	res, err := c.doCall(ctx, getContent(chunks))
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying in 5 seconds")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
		res, err = c.doCall(ctx, getContent(chunks))
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("google returned %d embeddings for %d inputs", len(res.Embeddings), len(chunks))
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, r := range res.Embeddings {
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskType})
}
