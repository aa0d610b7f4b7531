package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/embedding"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/google/uuid"
)

const sidecarFile = "meta.json"

// Sidecar is written next to every versioned collection.
type Sidecar struct {
	CollectionName  string                     `json:"collection_name"`
	EmbeddingModel  string                     `json:"embedding_model"`
	TotalChunks     int                        `json:"total_chunks"`
	ExampleMetadata commonModels.ChunkMetadata `json:"example_metadata"`
}

// Versioned keeps one collection per (subject, grade). Chunk content is embedded directly.
type Versioned struct {
	db       vectorDB.DataProcessor
	embedder embedding.Embedder
	baseDir  string
	locks    *keyedMutex
	logger   *logger_i.Logger
}

func NewVersioned(db vectorDB.DataProcessor, embedder embedding.Embedder, baseDir string) *Versioned {
	return &Versioned{
		db:       db,
		embedder: embedder,
		baseDir:  baseDir,
		locks:    newKeyedMutex(),
		logger:   logger_i.NewLogger("versioned_store"),
	}
}

// CollectionKey is lowercase(subject)_lowercase(grade) with spaces replaced by underscores.
// Missing parts become "unknown".
func CollectionKey(subject string, grade string) string {
	subject = strings.TrimSpace(subject)
	grade = strings.TrimSpace(grade)
	if subject == "" {
		subject = "unknown"
	}
	if grade == "" {
		grade = "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(subject+"_"+grade), " ", "_")
}

func GroupBySubjectGrade(chunks []commonModels.Chunk) map[string][]commonModels.Chunk {
	groups := make(map[string][]commonModels.Chunk)
	for _, c := range chunks {
		key := CollectionKey(c.Metadata.Subject, c.Metadata.Grade)
		groups[key] = append(groups[key], c)
	}
	return groups
}

// BuildAll writes every group and returns the collection keys it touched, sorted.
func (v *Versioned) BuildAll(ctx context.Context, chunks []commonModels.Chunk) ([]string, error) {
	groups := GroupBySubjectGrade(chunks)
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := v.Build(ctx, key, groups[key]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (v *Versioned) Build(ctx context.Context, key string, chunks []commonModels.Chunk) error {
	log := v.logger.FromContext(ctx).With("collection", key)
	if len(chunks) == 0 {
		return nil
	}
	unlock := v.locks.Lock(key)
	defer unlock()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	start := time.Now()
	vectors, err := v.embedder.BatchEmbedding(ctx, texts, len(texts) > config.HugeDataSetThreshold)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))
	if err != nil {
		return fmt.Errorf("embedding %s: %w", key, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks in %s", len(vectors), len(chunks), key)
	}

	points := make([]vectorDB.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorDB.Point{
			Id:      chunkId(key, c).String(),
			Vector:  vectors[i],
			Payload: chunkPayload(c),
		}
	}

	if err := v.db.CreateCollection(ctx, key, v.embedder.Dimension()); err != nil {
		return fmt.Errorf("creating collection %s: %w", key, err)
	}
	for start := 0; start < len(points); start += config.EmbeddingBatchSize {
		end := min(start+config.EmbeddingBatchSize, len(points))
		if err := v.db.UpsertBatch(ctx, key, points[start:end]); err != nil {
			return fmt.Errorf("upserting into %s: %w", key, err)
		}
	}

	total, err := v.db.Count(ctx, key)
	if err != nil {
		total = len(points)
	}
	if err := v.writeSidecar(key, Sidecar{
		CollectionName:  key,
		EmbeddingModel:  v.embedder.ModelName(),
		TotalChunks:     total,
		ExampleMetadata: chunks[0].Metadata,
	}); err != nil {
		return err
	}
	log.Info("Built versioned collection", "chunks", len(points))
	return nil
}

func (v *Versioned) writeSidecar(key string, sc Sidecar) error {
	dir := filepath.Join(v.baseDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, sidecarFile), raw, 0o644)
}

// ReadSidecar returns the meta.json of a built collection.
func (v *Versioned) ReadSidecar(key string) (*Sidecar, error) {
	raw, err := os.ReadFile(filepath.Join(v.baseDir, key, sidecarFile))
	if err != nil {
		return nil, err
	}
	var sc Sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("decoding %s sidecar: %w", key, err)
	}
	return &sc, nil
}

// Load returns nil, nil when nothing was ever built for the pair.
func (v *Versioned) Load(ctx context.Context, subject string, grade string) (*Collection, error) {
	key := CollectionKey(subject, grade)
	exists, err := v.db.CollectionExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", key, err)
	}
	if !exists {
		v.logger.FromContext(ctx).Info("No versioned collection", "collection", key)
		return nil, nil
	}
	return &Collection{Name: key, db: v.db, embedder: v.embedder}, nil
}

type Collection struct {
	Name     string
	db       vectorDB.DataProcessor
	embedder embedding.Embedder
}

func (c *Collection) Search(ctx context.Context, query string, k int) ([]commonModels.Chunk, error) {
	vector, err := c.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := c.db.Search(ctx, c.Name, vector, k, vectorDB.Filter{})
	if errors.Is(err, vectorDB.ErrCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]commonModels.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, payloadChunk(h))
	}
	return out, nil
}

func chunkId(key string, c commonModels.Chunk) uuid.UUID {
	name := key + "\x00" + c.Metadata.Source + "\x00" + strconv.Itoa(c.Metadata.Page) + "\x00" + c.Content
	return uuid.NewSHA1(pointNamespace, []byte(name))
}

func chunkPayload(c commonModels.Chunk) map[string]any {
	m := c.Metadata
	payload := map[string]any{
		"content":   c.Content,
		"subject":   m.Subject,
		"grade":     m.Grade,
		"type":      string(m.Type),
		"source":    m.Source,
		"page":      int64(m.Page),
		"exam_type": m.ExamType,
	}
	if m.ChunkIndex != nil {
		payload["chunk_index"] = int64(*m.ChunkIndex)
	}
	if m.TableIndex != nil {
		payload["table_index"] = int64(*m.TableIndex)
	}
	return payload
}

func payloadChunk(h vectorDB.Hit) commonModels.Chunk {
	meta := commonModels.ChunkMetadata{
		Subject:  h.String("subject"),
		Grade:    h.String("grade"),
		Type:     commonModels.ChunkType(h.String("type")),
		Source:   h.String("source"),
		ExamType: h.String("exam_type"),
	}
	if page, ok := payloadInt(h.Payload["page"]); ok {
		meta.Page = page
	}
	if idx, ok := payloadInt(h.Payload["chunk_index"]); ok {
		meta.ChunkIndex = &idx
	}
	if idx, ok := payloadInt(h.Payload["table_index"]); ok {
		meta.TableIndex = &idx
	}
	return commonModels.Chunk{Content: h.String("content"), Metadata: meta}
}

// payloadInt copes with the number types each backend hands back.
func payloadInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
