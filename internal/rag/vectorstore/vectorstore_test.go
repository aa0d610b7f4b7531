package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/embeddingtest"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockExtractor answers from a table keyed by exact text; unknown text fails extraction.
type MockExtractor struct {
	mu       sync.Mutex
	OnText   map[string]*commonModels.ExamMetadata
	Requests []string
}

func (m *MockExtractor) Extract(_ context.Context, text string) *commonModels.ExamMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, text)
	return m.OnText[text]
}

func newStore(t *testing.T, ex *MockExtractor) *Store {
	t.Helper()
	db, err := memoryDB.New("")
	require.NoError(t, err)
	return NewStore(db, embeddingtest.NewHashEmbedder(), ex, "exams")
}

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		subject, grade, want string
	}{
		{"Physics", "Grade 12", "physics_grade_12"},
		{"  Life Science ", "grade 9", "life_science_grade_9"},
		{"", "Grade 12", "unknown_grade_12"},
		{"Math", "", "math_unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionKey(tt.subject, tt.grade))
			assert.Equal(t, CollectionKey(tt.subject, tt.grade), CollectionKey(tt.subject, tt.grade))
		})
	}
}

func TestIndexFallbackNeverDropsChunks(t *testing.T) {
	ctx := context.Background()
	ex := &MockExtractor{OnText: map[string]*commonModels.ExamMetadata{
		"newton laws exercise": {Branch: []string{"general science"}, Subject: "Physics", Title: "Newton"},
	}}
	s := newStore(t, ex)

	n, err := s.Index(ctx, []string{"newton laws exercise", "garbled ###", "another unreadable chunk"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := s.db.Count(ctx, "exams")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSearchMissingCollectionIsEmpty(t *testing.T) {
	s := newStore(t, &MockExtractor{})
	chunks, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSearchFiltersOnAnyQueryBranch(t *testing.T) {
	ctx := context.Background()
	ex := &MockExtractor{OnText: map[string]*commonModels.ExamMetadata{
		"cell biology chunk":  {Branch: []string{"life science"}, Subject: "Biology", Title: "Cells"},
		"market supply chunk": {Branch: []string{"social and economic sciences"}, Subject: "Economics", Title: "Supply"},
		"poetry chunk":        {Branch: []string{"arts and humanities"}, Subject: "Literature", Title: "Poems"},
		"query":               {Branch: []string{"arts and humanities", "life science"}, Subject: "Biology", Title: "Cells"},
	}}
	s := newStore(t, ex)
	_, err := s.Index(ctx, []string{"cell biology chunk", "market supply chunk", "poetry chunk"})
	require.NoError(t, err)

	chunks, err := s.Search(ctx, "query", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	var full []string
	for _, c := range chunks {
		full = append(full, c.Metadata.FullChunk)
		assert.NotContains(t, c.Metadata.Branch, "social")
	}
	assert.ElementsMatch(t, []string{"cell biology chunk", "poetry chunk"}, full)
	assert.Equal(t, "cell biology chunk", chunks[0].Metadata.FullChunk)
	assert.Equal(t, "life science | Biology | Cells", chunks[0].Content)
}

func TestSearchFallbackQueryUsesFallbackBranch(t *testing.T) {
	ctx := context.Background()
	ex := &MockExtractor{OnText: map[string]*commonModels.ExamMetadata{
		"physics chunk": {Branch: []string{"general science"}, Subject: "Physics", Title: "Motion"},
		"history chunk": {Branch: []string{"arts and humanities"}, Subject: "History", Title: "War"},
	}}
	s := newStore(t, ex)
	_, err := s.Index(ctx, []string{"physics chunk", "history chunk"})
	require.NoError(t, err)

	query := strings.Repeat("q", 100)
	chunks, err := s.Search(ctx, query, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "physics chunk", chunks[0].Metadata.FullChunk)
}

func TestVersionedBuildLoadAndSidecar(t *testing.T) {
	ctx := context.Background()
	db, err := memoryDB.New("")
	require.NoError(t, err)
	dir := t.TempDir()
	v := NewVersioned(db, embeddingtest.NewHashEmbedder(), dir)

	idx := 0
	chunks := []commonModels.Chunk{
		{Content: "projectile motion exercise", Metadata: commonModels.ChunkMetadata{Subject: "Physics", Grade: "Grade 12", Type: commonModels.ChunkText, Source: "a.pdf", Page: 1, ChunkIndex: &idx}},
		{Content: "electric field exercise", Metadata: commonModels.ChunkMetadata{Subject: "Physics", Grade: "Grade 12", Type: commonModels.ChunkText, Source: "a.pdf", Page: 2}},
		{Content: "| x | y |", Metadata: commonModels.ChunkMetadata{Subject: "Chemistry", Grade: "Grade 11", Type: commonModels.ChunkTable, Source: "b.pdf", Page: 1}},
	}

	keys, err := v.BuildAll(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{"chemistry_grade_11", "physics_grade_12"}, keys)

	sc, err := v.ReadSidecar("physics_grade_12")
	require.NoError(t, err)
	assert.Equal(t, "physics_grade_12", sc.CollectionName)
	assert.Equal(t, 2, sc.TotalChunks)
	assert.Equal(t, "hash-embedder", sc.EmbeddingModel)
	assert.Equal(t, "a.pdf", sc.ExampleMetadata.Source)

	missing, err := v.Load(ctx, "Biology", "Grade 10")
	require.NoError(t, err)
	assert.Nil(t, missing)

	coll, err := v.Load(ctx, "physics", "grade 12")
	require.NoError(t, err)
	require.NotNil(t, coll)

	found, err := coll.Search(ctx, "projectile motion", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "projectile motion exercise", found[0].Content)
	require.NotNil(t, found[0].Metadata.ChunkIndex)
	assert.Equal(t, 0, *found[0].Metadata.ChunkIndex)
	assert.Equal(t, "Grade 12", found[0].Metadata.Grade)
}

func TestVersionedConcurrentBuildsSameKey(t *testing.T) {
	ctx := context.Background()
	db, _ := memoryDB.New("")
	v := NewVersioned(db, embeddingtest.NewHashEmbedder(), t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunk := commonModels.Chunk{Content: fmt.Sprintf("chunk %d", i), Metadata: commonModels.ChunkMetadata{Subject: "Math", Grade: "9", Source: "m.pdf"}}
			assert.NoError(t, v.Build(ctx, "math_9", []commonModels.Chunk{chunk}))
		}()
	}
	wg.Wait()

	n, err := db.Count(ctx, "math_9")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	sc, err := v.ReadSidecar("math_9")
	require.NoError(t, err)
	raw, _ := json.Marshal(sc)
	assert.Contains(t, string(raw), `"collection_name":"math_9"`)
}

func TestSemanticCache(t *testing.T) {
	ctx := context.Background()
	db, _ := memoryDB.New("")
	c := NewSemanticCache(db, embeddingtest.NewHashEmbedder(), "semantic-cache", 0.97)

	_, ok := c.Get(ctx, "what is the speed of light")
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "what is the speed of light", "about 3e8 m/s"))

	answer, ok := c.Get(ctx, "What is the speed of light?")
	require.True(t, ok)
	assert.Equal(t, "about 3e8 m/s", answer)

	_, ok = c.Get(ctx, "describe mitosis in plant cells")
	assert.False(t, ok)
}

// sameVectorEmbedder maps every text to the same vector, so every lookup is a perfect similarity match.
type sameVectorEmbedder struct{}

func (sameVectorEmbedder) GetEmbedding(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (e sameVectorEmbedder) BatchEmbedding(ctx context.Context, texts []string, _ bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.GetEmbedding(ctx, texts[i])
	}
	return out, nil
}

func (sameVectorEmbedder) ModelName() string { return "same-vector" }
func (sameVectorEmbedder) Dimension() int    { return 3 }

func TestSemanticCacheNeedsTheSameQuestion(t *testing.T) {
	ctx := context.Background()
	db, _ := memoryDB.New("")
	c := NewSemanticCache(db, sameVectorEmbedder{}, "semantic-cache", 0.97)

	require.NoError(t, c.Put(ctx, "math | grade 8 | area of a triangle with base 10cm and height 5cm", "25 cm2"))

	_, ok := c.Get(ctx, "math | grade 8 | area of a triangle with base 10cm and height 6cm")
	assert.False(t, ok, "a different number must not reuse the answer")

	answer, ok := c.Get(ctx, "Math | Grade 8 | Area of a triangle with base 10cm and height 5cm?")
	require.True(t, ok)
	assert.Equal(t, "25 cm2", answer)
}
