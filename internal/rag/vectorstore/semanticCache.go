package vectorstore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/google/uuid"
)

// cacheCandidates is how many nearest questions are compared against the lookup key.
const cacheCandidates = 3

// SemanticCache answers a question again when the same question was answered before.
// Similarity search only narrows the candidates; a hit needs the normalised question to
// match exactly, so questions that differ in a number or a unit never share an answer.
// Only deterministic, factual answers belong here; generated exams are never cached.
type SemanticCache struct {
	db         vectorDB.DataProcessor
	embedder   embedding.Embedder
	collection string
	cutoff     float32
	logger     *logger_i.Logger
}

func NewSemanticCache(db vectorDB.DataProcessor, embedder embedding.Embedder, collection string, cutoff float32) *SemanticCache {
	return &SemanticCache{
		db:         db,
		embedder:   embedder,
		collection: collection,
		cutoff:     cutoff,
		logger:     logger_i.NewLogger("semantic_cache"),
	}
}

func (c *SemanticCache) Get(ctx context.Context, question string) (string, bool) {
	log := c.logger.FromContext(ctx)

	vector, err := c.embedder.GetEmbedding(ctx, question)
	if err != nil {
		log.Warn("Cache lookup embedding failed", "error", err)
		return "", false
	}
	hits, err := c.db.Search(ctx, c.collection, vector, cacheCandidates, vectorDB.Filter{})
	if err != nil && !errors.Is(err, vectorDB.ErrCollectionNotFound) {
		log.Error("Cache Query failed", "error", err)
	}

	key := normaliseQuestion(question)
	for _, hit := range hits {
		if hit.Score < c.cutoff {
			break
		}
		if hit.String("key") == key {
			log.Debug("Found cached answer", "semantic similarity score", hit.Score)
			metrics.CaptureSemanticCache(true)
			return hit.String("answer"), true
		}
	}
	metrics.CaptureSemanticCache(false)
	return "", false
}

func (c *SemanticCache) Put(ctx context.Context, question string, answer string) error {
	log := c.logger.FromContext(ctx)

	key := normaliseQuestion(question)
	vector, err := c.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return err
	}
	if err := c.db.CreateCollection(ctx, c.collection, c.embedder.Dimension()); err != nil {
		return err
	}
	err = c.db.UpsertBatch(ctx, c.collection, []vectorDB.Point{{
		Id:     uuid.NewSHA1(pointNamespace, []byte(key)).String(),
		Vector: vector,
		Payload: map[string]any{
			"key":       key,
			"question":  question,
			"answer":    answer,
			"timestamp": time.Now().Unix(),
		},
	}})
	if err != nil {
		log.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// normaliseQuestion lowercases and keeps letters and digits, collapsing everything else to one space.
func normaliseQuestion(question string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
