package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/metrics"
	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

const (
	parsedSuffix  = ".parsed.txt"
	chunkedSuffix = ".chunked.txt"
	markerSuffix  = ".embedded"
)

type Indexer interface {
	Index(ctx context.Context, chunks []string) (int, error)
}

type Chunker interface {
	ChunkFile(inPath string, outPath string) (int, error)
}

// Stats counts files per stage for one run. A run over an up to date cache does no work.
type Stats struct {
	Parsed       int `json:"parsed"`
	ParseSkipped int `json:"parse_skipped"`
	ParseFailed  int `json:"parse_failed"`
	Chunked      int `json:"chunked"`
	ChunkSkipped int `json:"chunk_skipped"`
	ChunkFailed  int `json:"chunk_failed"`
	Embedded     int `json:"embedded"`
	EmbedSkipped int `json:"embed_skipped"`
	EmbedFailed  int `json:"embed_failed"`
	Chunks       int `json:"chunks"`
}

func (s Stats) Work() int {
	return s.Parsed + s.Chunked + s.Embedded
}

type counters struct {
	parsed, parseSkipped, parseFailed   atomic.Int64
	chunked, chunkSkipped, chunkFailed  atomic.Int64
	embedded, embedSkipped, embedFailed atomic.Int64
	chunks                              atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Parsed:       int(c.parsed.Load()),
		ParseSkipped: int(c.parseSkipped.Load()),
		ParseFailed:  int(c.parseFailed.Load()),
		Chunked:      int(c.chunked.Load()),
		ChunkSkipped: int(c.chunkSkipped.Load()),
		ChunkFailed:  int(c.chunkFailed.Load()),
		Embedded:     int(c.embedded.Load()),
		EmbedSkipped: int(c.embedSkipped.Load()),
		EmbedFailed:  int(c.embedFailed.Load()),
		Chunks:       int(c.chunks.Load()),
	}
}

// Pipeline turns the exams directory into indexed chunks in three stages
// (parse, chunk, embed). Every stage caches its output on disk and skips
// files it already handled unless forceReload is set.
type Pipeline struct {
	examsPath   string
	parsedDir   string
	chunkedDir  string
	forceReload bool
	concurrency int

	parser  ingest.Parser
	chunker Chunker
	indexer Indexer

	running sync.Mutex
	logger  *logger_i.Logger
}

func New(cfg *config.AppConfig, parser ingest.Parser, chunker Chunker, indexer Indexer) *Pipeline {
	concurrency := cfg.Pipeline.MaxConcurrency
	if concurrency <= 0 {
		concurrency = config.PipelineConcurrency
	}
	return &Pipeline{
		examsPath:   cfg.ExamsPath,
		parsedDir:   cfg.Pipeline.ParsedDir,
		chunkedDir:  cfg.Pipeline.ChunkedDir,
		forceReload: cfg.ForceReload,
		concurrency: concurrency,
		parser:      parser,
		chunker:     chunker,
		indexer:     indexer,
		logger:      logger_i.NewLogger("exam_pipeline"),
	}
}

func (p *Pipeline) ExamsPath() string {
	return p.examsPath
}

// ProcessAll runs the three stages, waiting for any run already in progress.
func (p *Pipeline) ProcessAll(ctx context.Context) (Stats, error) {
	p.running.Lock()
	defer p.running.Unlock()
	return p.process(ctx)
}

func (p *Pipeline) process(ctx context.Context) (Stats, error) {
	log := p.logger.FromContext(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("pipeline_run", time.Since(start)) }()

	for _, dir := range []string{p.parsedDir, p.chunkedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Stats{}, err
		}
	}

	var c counters
	log.Info("Step 1/3 - Parsing exam files", "dir", p.examsPath)
	if err := p.parseAll(ctx, &c); err != nil {
		return c.snapshot(), err
	}
	log.Info("Step 2/3 - Chunking parsed files")
	if err := p.chunkAll(ctx, &c); err != nil {
		return c.snapshot(), err
	}
	log.Info("Step 3/3 - Embedding chunks into the vector store")
	err := p.embedAll(ctx, &c)

	stats := c.snapshot()
	log.Info("Pipeline finished", "stats", stats, "elapsed", time.Since(start))
	return stats, err
}

func (p *Pipeline) parseAll(ctx context.Context, c *counters) error {
	log := p.logger.FromContext(ctx)

	var sources []string
	byName := make(map[string][]string)
	walkErr := filepath.WalkDir(p.examsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !ingest.Supported(path) {
			log.Debug("Skipping unsupported file", "path", path)
			return nil
		}
		sources = append(sources, path)
		byName[d.Name()] = append(byName[d.Name()], path)
		return nil
	})
	if errors.Is(walkErr, fs.ErrNotExist) {
		log.Warn("Exams directory does not exist", "dir", p.examsPath)
		return nil
	}
	if walkErr != nil {
		return walkErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, path := range sources {
		if err := gctx.Err(); err != nil {
			break
		}
		// the cache is keyed by file name, so a shared name cannot be told apart
		if owners := byName[filepath.Base(path)]; len(owners) > 1 {
			log.Error("Skipping exam file whose name is not unique", "path", path, "sameName", owners)
			c.parseFailed.Add(1)
			metrics.CapturePipelineFile("parse", "failed")
			continue
		}
		out := p.parsedPath(path)
		if !p.forceReload && exists(out) {
			c.parseSkipped.Add(1)
			metrics.CapturePipelineFile("parse", "skipped")
			continue
		}

		// blocks while the admission limit is reached
		g.Go(func() error {
			if err := p.parser.ParseAndSave(gctx, path, out); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("Failed to parse file", "path", path, "error", err)
				c.parseFailed.Add(1)
				metrics.CapturePipelineFile("parse", "failed")
				return nil
			}
			c.parsed.Add(1)
			metrics.CapturePipelineFile("parse", "done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Pipeline) chunkAll(ctx context.Context, c *counters) error {
	log := p.logger.FromContext(ctx)
	entries, err := os.ReadDir(p.parsedDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), parsedSuffix) {
			continue
		}
		in := filepath.Join(p.parsedDir, e.Name())
		out := filepath.Join(p.chunkedDir, strings.TrimSuffix(e.Name(), parsedSuffix)+chunkedSuffix)
		if !p.forceReload && exists(out) {
			c.chunkSkipped.Add(1)
			metrics.CapturePipelineFile("chunk", "skipped")
			continue
		}

		n, err := p.chunker.ChunkFile(in, out)
		if err != nil {
			log.Error("Failed to chunk file", "path", in, "error", err)
			c.chunkFailed.Add(1)
			metrics.CapturePipelineFile("chunk", "failed")
			continue
		}
		log.Debug("Chunked file", "path", in, "chunks", n)
		c.chunked.Add(1)
		metrics.CapturePipelineFile("chunk", "done")
	}
	return nil
}

// embedAll writes each file's marker before its task starts, so a concurrent or
// later run never indexes the same file twice. A failed task removes its marker
// so the next run retries it.
func (p *Pipeline) embedAll(ctx context.Context, c *counters) error {
	log := p.logger.FromContext(ctx)
	entries, err := os.ReadDir(p.chunkedDir)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	var mu sync.Mutex
	var errs []error

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), chunkedSuffix) {
			continue
		}
		path := filepath.Join(p.chunkedDir, e.Name())
		marker := path + markerSuffix
		if !p.forceReload && exists(marker) {
			c.embedSkipped.Add(1)
			metrics.CapturePipelineFile("embed", "skipped")
			continue
		}

		chunks, err := ingest.ReadChunkFile(path)
		if err != nil {
			log.Error("Failed to read chunk file", "path", path, "error", err)
			c.embedFailed.Add(1)
			continue
		}
		if len(chunks) == 0 {
			log.Warn("No chunks found", "path", path)
			continue
		}
		if err := os.WriteFile(marker, nil, 0o644); err != nil {
			return err
		}

		log.Info("Embedding chunks", "file", e.Name(), "chunks", len(chunks))
		g.Go(func() error {
			n, err := p.indexer.Index(ctx, chunks)
			if err != nil {
				log.Error("Failed to embed file", "path", path, "error", err)
				if rmErr := os.Remove(marker); rmErr != nil {
					log.Error("Failed to remove marker", "marker", marker, "error", rmErr)
				}
				c.embedFailed.Add(1)
				metrics.CapturePipelineFile("embed", "failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			c.embedded.Add(1)
			c.chunks.Add(int64(n))
			metrics.CapturePipelineFile("embed", "done")
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
