package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
	ParseAndSave(ctx context.Context, inPath string, outPath string) error
}

// FileParser turns a source exam into plain text, pages separated by a blank line.
type FileParser struct {
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewFileParser() *FileParser {
	return &FileParser{
		pageTimeout: config.PDFPageTimeout,
		logger:      logger_i.NewLogger("file_parser"),
	}
}

func (p *FileParser) Parse(ctx context.Context, path string) (string, error) {
	pages, err := extractPages(ctx, path, p.pageTimeout, p.logger.FromContext(ctx))
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if content := strings.TrimSpace(page.Content); content != "" {
			texts = append(texts, content)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// ParseAndSave writes through a temp file so a half-written cache file is never picked up on restart.
func (p *FileParser) ParseAndSave(ctx context.Context, inPath string, outPath string) error {
	text, err := p.Parse(ctx, inPath)
	if err != nil {
		return err
	}
	return writeFileAtomic(outPath, []byte(text))
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
