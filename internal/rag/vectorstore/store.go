package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/internal/rag/metadata"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	payloadDescriptor = "descriptor"
	payloadBranch     = "branch"
	payloadBranches   = "branches"
	payloadSubject    = "subject"
	payloadTitle      = "title"
	payloadFullChunk  = "full_chunk"
)

var pointNamespace = uuid.MustParse("6f1c1a52-3f5e-4a53-9d1e-2b7b0c7d9e10")

type MetadataExtractor interface {
	Extract(ctx context.Context, text string) *commonModels.ExamMetadata
}

// Store indexes chunks by their metadata descriptor rather than their raw text.
// Stored points and queries are tagged by the same extractor.
type Store struct {
	db         vectorDB.DataProcessor
	embedder   embedding.Embedder
	extractor  MetadataExtractor
	collection string
	locks      *keyedMutex
	logger     *logger_i.Logger
}

func NewStore(db vectorDB.DataProcessor, embedder embedding.Embedder, extractor MetadataExtractor, collection string) *Store {
	return &Store{
		db:         db,
		embedder:   embedder,
		extractor:  extractor,
		collection: collection,
		locks:      newKeyedMutex(),
		logger:     logger_i.NewLogger("vector_store"),
	}
}

func (s *Store) Collection() string {
	return s.collection
}

// Index stores every chunk; chunks whose metadata cannot be extracted get the fallback tag.
// Identical chunks map to the same point id, so re-indexing overwrites.
func (s *Store) Index(ctx context.Context, chunks []string) (int, error) {
	log := s.logger.FromContext(ctx)
	if len(chunks) == 0 {
		return 0, nil
	}

	metas := s.tagAll(ctx, chunks)
	descriptors := make([]string, len(metas))
	for i, m := range metas {
		descriptors[i] = m.EmbeddingText()
	}

	start := time.Now()
	vectors, err := s.embedder.BatchEmbedding(ctx, descriptors, len(descriptors) > config.HugeDataSetThreshold)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("embedding descriptors: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]vectorDB.Point, len(chunks))
	for i, chunk := range chunks {
		m := metas[i]
		branches := make([]any, len(m.Branch))
		for j, b := range m.Branch {
			branches[j] = b
		}
		points[i] = vectorDB.Point{
			Id:     uuid.NewSHA1(pointNamespace, []byte(chunk)).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				payloadDescriptor: descriptors[i],
				payloadBranch:     m.JoinedBranches(),
				payloadBranches:   branches,
				payloadSubject:    m.Subject,
				payloadTitle:      m.Title,
				payloadFullChunk:  chunk,
			},
		}
	}

	if err := s.upsert(ctx, s.collection, points); err != nil {
		return 0, err
	}
	log.Info("Indexed chunks", "collection", s.collection, "count", len(points))
	return len(points), nil
}

func (s *Store) tagAll(ctx context.Context, chunks []string) []commonModels.ExamMetadata {
	metas := make([]commonModels.ExamMetadata, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MetadataWorkers)
	for i, chunk := range chunks {
		g.Go(func() error {
			m := s.extractor.Extract(gctx, chunk)
			if m == nil {
				metrics.CaptureMetadataFallback("chunk")
				metas[i] = commonModels.FallbackMetadata("")
				return nil
			}
			metas[i] = *m
			return nil
		})
	}
	_ = g.Wait()
	return metas
}

// upsert creates the collection on first write and writes in batches; each batch is durable
// before the next one starts.
func (s *Store) upsert(ctx context.Context, collection string, points []vectorDB.Point) error {
	unlock := s.locks.Lock(collection)
	defer unlock()

	if err := s.db.CreateCollection(ctx, collection, s.embedder.Dimension()); err != nil {
		return fmt.Errorf("creating collection %s: %w", collection, err)
	}
	for start := 0; start < len(points); start += config.EmbeddingBatchSize {
		end := min(start+config.EmbeddingBatchSize, len(points))
		if err := s.db.UpsertBatch(ctx, collection, points[start:end]); err != nil {
			return fmt.Errorf("upserting into %s: %w", collection, err)
		}
	}
	return nil
}

// Search tags the query like a chunk and keeps only points sharing at least one branch with it.
// A collection that was never written to yields no results.
func (s *Store) Search(ctx context.Context, query string, k int) ([]commonModels.Chunk, error) {
	log := s.logger.FromContext(ctx)

	m := s.extractor.Extract(ctx, query)
	if m == nil {
		metrics.CaptureMetadataFallback("query")
		fb := commonModels.FallbackMetadata(metadata.Truncate(query, config.FallbackTitleLength))
		m = &fb
	}

	vector, err := s.embedder.GetEmbedding(ctx, m.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.db.Search(ctx, s.collection, vector, k, vectorDB.Filter{Key: payloadBranches, AnyOf: m.Branch})
	if errors.Is(err, vectorDB.ErrCollectionNotFound) {
		log.Info("Collection does not exist yet", "collection", s.collection)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]commonModels.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, commonModels.Chunk{
			Content: h.String(payloadDescriptor),
			Metadata: commonModels.ChunkMetadata{
				Subject:   h.String(payloadSubject),
				Branch:    h.String(payloadBranch),
				Title:     h.String(payloadTitle),
				FullChunk: h.String(payloadFullChunk),
			},
		})
	}
	return out, nil
}
