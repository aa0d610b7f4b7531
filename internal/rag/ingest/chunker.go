package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

// ChunkSeparator is the line written after every chunk in a chunk file.
const ChunkSeparator = "---"

type Chunker struct {
	splitter *splitter
	logger   *logger_i.Logger
}

func NewChunker(cfg config.PipelineConfig) *Chunker {
	return &Chunker{
		splitter: newSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		logger:   logger_i.NewLogger("chunker"),
	}
}

func (c *Chunker) Chunk(text string) []string {
	return c.splitter.Split(text)
}

// ChunkFile chunks inPath and writes each chunk followed by a "---" line to outPath.
func (c *Chunker) ChunkFile(inPath string, outPath string) (int, error) {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return 0, err
	}
	chunks := c.Chunk(string(raw))

	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk)
		b.WriteString("\n" + ChunkSeparator + "\n")
	}
	if err := writeFileAtomic(outPath, []byte(b.String())); err != nil {
		return 0, err
	}
	c.logger.Debug("Wrote chunks", "in", inPath, "out", outPath, "count", len(chunks))
	return len(chunks), nil
}

// ReadChunkFile is the inverse of ChunkFile. Empty chunks are dropped.
func ReadChunkFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []string
	var current []string
	flush := func() {
		if chunk := strings.TrimSpace(strings.Join(current, "\n")); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == ChunkSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("chunk file %s has an oversized line: %w", path, err)
		}
		return nil, err
	}
	flush()
	return chunks, nil
}
