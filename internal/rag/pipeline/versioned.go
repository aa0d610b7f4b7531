package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

type VersionedStore interface {
	BuildAll(ctx context.Context, chunks []commonModels.Chunk) ([]string, error)
}

// VersionedBuilder feeds the per subject and grade collections: typed blocks,
// smart chunks, then one collection per group. Intermediate JSONL files are
// kept under outputDir for inspection.
type VersionedBuilder struct {
	// serialises builds; they share the JSONL outputs
	mu sync.Mutex

	examsPath   string
	outputDir   string
	concurrency int
	parser      *ingest.BlockParser
	chunker     *ingest.SmartChunker
	store       VersionedStore
	logger      *logger_i.Logger
}

func NewVersionedBuilder(cfg *config.AppConfig, store VersionedStore) *VersionedBuilder {
	concurrency := cfg.Pipeline.MaxConcurrency
	if concurrency <= 0 {
		concurrency = config.PipelineConcurrency
	}
	return &VersionedBuilder{
		examsPath:   cfg.ExamsPath,
		outputDir:   cfg.Pipeline.VersionedOutputDir,
		concurrency: concurrency,
		parser:      ingest.NewBlockParser(cfg.ExamsPath),
		chunker:     ingest.NewSmartChunker(cfg.Pipeline),
		store:       store,
		logger:      logger_i.NewLogger("versioned_builder"),
	}
}

func (b *VersionedBuilder) ParsedPath() string {
	return filepath.Join(b.outputDir, "parsed_docs.jsonl")
}

func (b *VersionedBuilder) ChunkedPath() string {
	return filepath.Join(b.outputDir, "chunked_docs.jsonl")
}

// Build rebuilds every collection and returns the keys that were written.
func (b *VersionedBuilder) Build(ctx context.Context) ([]string, error) {
	return b.build(ctx, b.examsPath, b.ParsedPath(), b.ChunkedPath())
}

// BuildDir rebuilds only the collections fed by the files under dir, such as one
// <grade>/<subject> upload directory. Its JSONL files go under groups/ in the output directory.
func (b *VersionedBuilder) BuildDir(ctx context.Context, dir string) ([]string, error) {
	rel, err := filepath.Rel(b.examsPath, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is not inside the exams directory %s", dir, b.examsPath)
	}
	if rel == "." {
		return b.Build(ctx)
	}
	group := strings.ReplaceAll(strings.ToLower(filepath.ToSlash(rel)), "/", "_")
	out := filepath.Join(b.outputDir, "groups", group)
	return b.build(ctx, dir, filepath.Join(out, "parsed_docs.jsonl"), filepath.Join(out, "chunked_docs.jsonl"))
}

func (b *VersionedBuilder) build(ctx context.Context, root string, parsedPath string, chunkedPath string) ([]string, error) {
	log := b.logger.FromContext(ctx).With("root", root)
	b.mu.Lock()
	defer b.mu.Unlock()

	blocks, err := b.parseAll(ctx, root)
	if err != nil {
		return nil, err
	}
	log.Info("Parsed exam blocks", "blocks", len(blocks))
	if err := ingest.WriteJSONL(parsedPath, blocks); err != nil {
		return nil, err
	}

	chunks, err := b.chunker.ChunkJSONL(parsedPath, chunkedPath)
	if err != nil {
		return nil, err
	}
	log.Info("Chunked exam blocks", "chunks", len(chunks))

	return b.store.BuildAll(ctx, chunks)
}

func (b *VersionedBuilder) parseAll(ctx context.Context, root string) ([]commonModels.Chunk, error) {
	log := b.logger.FromContext(ctx)
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && ingest.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// results are kept in walk order so the JSONL output is stable
	perFile := make([][]commonModels.Chunk, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			blocks, err := b.parser.ParseBlocks(gctx, path)
			if err != nil {
				log.Error("Failed to parse file", "path", path, "error", err)
				return nil
			}
			perFile[i] = blocks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []commonModels.Chunk
	for _, blocks := range perFile {
		all = append(all, blocks...)
	}
	return all, nil
}
