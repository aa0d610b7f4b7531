package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openai caps the input array of a single embeddings request
const maxInputsPerCall = 512

type client struct {
	api       openai.Client
	model     string
	dimension int32
	batchSize int
	logger    *logger_i.Logger
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig, apikey string, httpClient *http.Client) embedding.Embedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > maxInputsPerCall {
		batchSize = maxInputsPerCall
	}
	c := &client{
		api:       openai.NewClient(option.WithAPIKey(apikey), option.WithHTTPClient(httpClient)),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: batchSize,
		logger:    logger_i.NewLogger("openai_embedding"),
	}
	c.logger.Info("OpenAI Embedding client created", "model", cfg.Model)
	return c
}

func (c *client) ModelName() string {
	return c.model
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbedding has no async job path on openai; isHugeDataSet is ignored.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
	results := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += c.batchSize {
		end := min(start+c.batchSize, len(chunks))
		vectors, err := c.embed(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (c *client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	log := c.logger.FromContext(ctx)
	rsp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(rsp.Data) != len(inputs) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(rsp.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range rsp.Data {
		if d.Index < 0 || int(d.Index) >= len(inputs) {
			return nil, fmt.Errorf("openai returned embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vectors[d.Index] = v
	}
	return vectors, nil
}
