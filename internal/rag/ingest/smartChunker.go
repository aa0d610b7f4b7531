package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
)

// SmartChunker splits text blocks and passes tables and equations through whole.
type SmartChunker struct {
	splitter *splitter
}

func NewSmartChunker(cfg config.PipelineConfig) *SmartChunker {
	return &SmartChunker{splitter: newSplitter(cfg.ChunkSize, cfg.ChunkOverlap)}
}

func (c *SmartChunker) ChunkBlocks(blocks []commonModels.Chunk) []commonModels.Chunk {
	var out []commonModels.Chunk
	for _, block := range blocks {
		switch block.Metadata.Type {
		case commonModels.ChunkTable, commonModels.ChunkMath:
			out = append(out, block)
		default:
			for i, piece := range c.splitter.Split(block.Content) {
				meta := block.Metadata
				meta.Type = commonModels.ChunkText
				meta.ChunkIndex = &i
				out = append(out, commonModels.Chunk{Content: piece, Metadata: meta})
			}
		}
	}
	return out
}

// ChunkJSONL reads parsed blocks from inPath and writes chunks to outPath, one JSON object per line.
func (c *SmartChunker) ChunkJSONL(inPath string, outPath string) ([]commonModels.Chunk, error) {
	blocks, err := ReadJSONL(inPath)
	if err != nil {
		return nil, err
	}
	chunks := c.ChunkBlocks(blocks)
	if err := WriteJSONL(outPath, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func ReadJSONL(path string) ([]commonModels.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []commonModels.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c commonModels.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, scanner.Err()
}

func WriteJSONL(path string, chunks []commonModels.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
