package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/embeddingtest"
	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/ExamAPI/internal/rag/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockIndexer struct {
	mu      sync.Mutex
	OnIndex func(ctx context.Context, chunks []string) (int, error)
	batches [][]string
}

func (m *MockIndexer) Index(ctx context.Context, chunks []string) (int, error) {
	m.mu.Lock()
	m.batches = append(m.batches, chunks)
	m.mu.Unlock()
	if m.OnIndex != nil {
		return m.OnIndex(ctx, chunks)
	}
	return len(chunks), nil
}

func (m *MockIndexer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.ExamsPath = filepath.Join(root, "exams")
	cfg.Pipeline.ParsedDir = filepath.Join(root, "parsed")
	cfg.Pipeline.ChunkedDir = filepath.Join(root, "chunked")
	cfg.Pipeline.VersionedOutputDir = filepath.Join(root, "versioned")
	cfg.Pipeline.ChunkSize = 200
	cfg.Pipeline.ChunkOverlap = 20
	return cfg
}

func writeExam(t *testing.T, cfg *config.AppConfig, rel string, content string) {
	t.Helper()
	path := filepath.Join(cfg.ExamsPath, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newPipeline(cfg *config.AppConfig, indexer Indexer) *Pipeline {
	return New(cfg, ingest.NewFileParser(), ingest.NewChunker(cfg.Pipeline), indexer)
}

func TestProcessAllIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 12/Physics/bac_2019.txt", strings.Repeat("Exercise about projectile motion. ", 20))
	writeExam(t, cfg, "Grade 12/Chemistry/quiz.txt", "Balance the equation H2 + O2 -> H2O.")
	writeExam(t, cfg, "Grade 12/Chemistry/diagram.png", "not an exam")

	idx := &MockIndexer{}
	p := newPipeline(cfg, idx)

	first, err := p.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Parsed)
	assert.Equal(t, 2, first.Chunked)
	assert.Equal(t, 2, first.Embedded)
	assert.Greater(t, first.Chunks, 2)
	assert.Equal(t, 2, idx.Calls())

	assert.FileExists(t, filepath.Join(cfg.Pipeline.ParsedDir, "bac_2019.txt.parsed.txt"))
	assert.FileExists(t, filepath.Join(cfg.Pipeline.ChunkedDir, "bac_2019.txt.chunked.txt"))
	marker := filepath.Join(cfg.Pipeline.ChunkedDir, "bac_2019.txt.chunked.txt.embedded")
	info, err := os.Stat(marker)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	second, err := p.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Work())
	assert.Equal(t, 2, second.ParseSkipped)
	assert.Equal(t, 2, second.ChunkSkipped)
	assert.Equal(t, 2, second.EmbedSkipped)
	assert.Equal(t, 2, idx.Calls())
}

func TestForceReloadRedoesEverything(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 9/Math/mid.txt", "Solve 2x + 3 = 7.")

	idx := &MockIndexer{}
	_, err := newPipeline(cfg, idx).ProcessAll(context.Background())
	require.NoError(t, err)

	cfg.ForceReload = true
	stats, err := newPipeline(cfg, idx).ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 1, stats.Chunked)
	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, 2, idx.Calls())
}

func TestMarkerWrittenBeforeIndexAndRemovedOnFailure(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 9/Math/final.txt", "Compute the derivative of x^3.")
	marker := filepath.Join(cfg.Pipeline.ChunkedDir, "final.txt.chunked.txt.embedded")

	markerSeen := false
	idx := &MockIndexer{OnIndex: func(ctx context.Context, chunks []string) (int, error) {
		_, err := os.Stat(marker)
		markerSeen = err == nil
		return 0, errors.New("embedding service down")
	}}

	stats, err := newPipeline(cfg, idx).ProcessAll(context.Background())
	assert.Error(t, err)
	assert.True(t, markerSeen)
	assert.Equal(t, 1, stats.EmbedFailed)
	assert.NoFileExists(t, marker)

	// the next run retries only the embed stage
	idx.OnIndex = nil
	stats, err = newPipeline(cfg, idx).ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Parsed)
	assert.Equal(t, 1, stats.Embedded)
}

func TestMissingExamsDirIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	stats, err := newPipeline(cfg, &MockIndexer{}).ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Work())
}

func TestRunWhileRunningDegradesToBackground(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 9/Math/quiz.txt", "What is 7 x 8?")

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	idx := &MockIndexer{OnIndex: func(ctx context.Context, chunks []string) (int, error) {
		once.Do(func() { close(started) })
		<-release
		return len(chunks), nil
	}}
	p := newPipeline(cfg, idx)

	firstDone := make(chan *Task)
	go func() { firstDone <- p.Run(context.Background()) }()
	<-started

	second := p.Run(context.Background())
	assert.True(t, second.Background)
	select {
	case <-second.Done():
		t.Fatal("background run finished while the first run still holds the pipeline")
	default:
	}

	close(release)
	first := <-firstDone
	assert.False(t, first.Background)
	firstStats, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, firstStats.Embedded)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	secondStats, err := second.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, secondStats.Work())
}

func TestVersionedBuilder(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 12/Physics/bac_2019.txt", "Exercise 1\nA ball is thrown with v = 10 m/s.\nTime    Height\n0    0\n1    5")
	writeExam(t, cfg, "Grade 11/Chemistry/quiz.txt", "Name the noble gases.")

	db, err := memoryDB.New("")
	require.NoError(t, err)
	store := vectorstore.NewVersioned(db, embeddingtest.NewHashEmbedder(), cfg.Pipeline.VersionedOutputDir)

	b := NewVersionedBuilder(cfg, store)
	keys, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chemistry_grade_11", "physics_grade_12"}, keys)

	chunks, err := ingest.ReadJSONL(b.ChunkedPath())
	require.NoError(t, err)
	types := map[commonModels.ChunkType]int{}
	for _, c := range chunks {
		types[c.Metadata.Type]++
		if c.Metadata.Subject == "Physics" {
			assert.Equal(t, "final", c.Metadata.ExamType)
			assert.Equal(t, "Grade 12", c.Metadata.Grade)
		}
	}
	assert.Equal(t, 2, types[commonModels.ChunkText])
	assert.Equal(t, 1, types[commonModels.ChunkTable])
	assert.Equal(t, 1, types[commonModels.ChunkMath])

	coll, err := store.Load(context.Background(), "Physics", "Grade 12")
	require.NoError(t, err)
	require.NotNil(t, coll)
}

func TestSharedFileNameIsSkippedEverywhere(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 12/Physics/final_2019.txt", "Physics: projectile motion exercise.")
	writeExam(t, cfg, "Grade 12/Chemistry/final_2019.txt", "Chemistry: titration exercise.")
	writeExam(t, cfg, "Grade 12/Chemistry/quiz.txt", "Chemistry: name the halogens.")

	idx := &MockIndexer{}
	p := newPipeline(cfg, idx)
	stats, err := p.ProcessAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ParseFailed)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 1, stats.Embedded)
	require.Equal(t, 1, idx.Calls())
	assert.Contains(t, strings.Join(idx.batches[0], " "), "halogens")

	assert.False(t, p.Indexed(filepath.Join(cfg.ExamsPath, "Grade 12/Physics/final_2019.txt")))
	assert.False(t, p.Indexed(filepath.Join(cfg.ExamsPath, "Grade 12/Chemistry/final_2019.txt")))
	assert.True(t, p.Indexed(filepath.Join(cfg.ExamsPath, "Grade 12/Chemistry/quiz.txt")))
}

func TestInvalidateReindexesAReplacedFile(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 12/Physics/final_2019.txt", "first draft about levers")
	source := filepath.Join(cfg.ExamsPath, "Grade 12/Physics/final_2019.txt")

	idx := &MockIndexer{}
	p := newPipeline(cfg, idx)
	_, err := p.ProcessAll(context.Background())
	require.NoError(t, err)
	require.True(t, p.Indexed(source))

	writeExam(t, cfg, "Grade 12/Physics/final_2019.txt", "corrected version about pulleys")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(source, later, later))
	assert.False(t, p.Indexed(source), "a file newer than its marker is not indexed")

	// without invalidation every stage is skipped
	stats, err := p.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Work())

	require.NoError(t, p.Invalidate(source))
	require.NoError(t, p.Invalidate(source), "invalidating twice is fine")
	require.NoError(t, os.Chtimes(source, time.Now().Add(-time.Minute), time.Now().Add(-time.Minute)))

	stats, err = p.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 1, stats.Embedded)
	require.Equal(t, 2, idx.Calls())
	assert.Contains(t, strings.Join(idx.batches[1], " "), "pulleys")
	assert.True(t, p.Indexed(source))
}

func TestBuildDirOnlyTouchesItsGroup(t *testing.T) {
	cfg := testConfig(t)
	writeExam(t, cfg, "Grade 10/Biology/midterm.txt", "Photosynthesis happens in the chloroplast.")
	writeExam(t, cfg, "Grade 11/Chemistry/quiz.txt", "Name the noble gases.")

	db, err := memoryDB.New("")
	require.NoError(t, err)
	store := vectorstore.NewVersioned(db, embeddingtest.NewHashEmbedder(), cfg.Pipeline.VersionedOutputDir)
	b := NewVersionedBuilder(cfg, store)

	keys, err := b.BuildDir(context.Background(), filepath.Join(cfg.ExamsPath, "Grade 10", "Biology"))
	require.NoError(t, err)
	assert.Equal(t, []string{"biology_grade_10"}, keys)

	chemistry, err := store.Load(context.Background(), "Chemistry", "Grade 11")
	require.NoError(t, err)
	assert.Nil(t, chemistry)

	_, err = b.BuildDir(context.Background(), filepath.Join(cfg.ExamsPath, ".."))
	assert.Error(t, err)
}
