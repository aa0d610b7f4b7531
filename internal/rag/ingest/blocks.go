package ingest

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

const mathSymbols = "=^*/√π±∑∫∞≠≈≤≥"

var cellSeparator = regexp.MustCompile(`\t+| {2,}|\s*\|\s*`)

var examTypeKeywords = []struct {
	examType string
	keywords []string
}{
	{"final", []string{"final", "bac", "baccalaureate"}},
	{"partial", []string{"mid", "partial", "term1", "term2"}},
	{"quiz", []string{"quiz"}},
	{"exercise", []string{"exercise"}},
	{"mock", []string{"mock"}},
}

// BlockParser splits every page into typed blocks: the full page text, each table and the
// equation lines. Grade and subject come from the first two directories under root.
type BlockParser struct {
	root        string
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewBlockParser(root string) *BlockParser {
	return &BlockParser{
		root:        root,
		pageTimeout: config.PDFPageTimeout,
		logger:      logger_i.NewLogger("block_parser"),
	}
}

func (p *BlockParser) ParseBlocks(ctx context.Context, path string) ([]commonModels.Chunk, error) {
	log := p.logger.FromContext(ctx)
	pages, err := extractPages(ctx, path, p.pageTimeout, log)
	if err != nil {
		return nil, err
	}

	grade, subject := PathMetadata(p.root, path)
	base := commonModels.ChunkMetadata{
		Subject:  subject,
		Grade:    grade,
		Source:   path,
		ExamType: ExamTypeFromName(path),
	}

	var blocks []commonModels.Chunk
	for _, page := range pages {
		meta := base
		meta.Page = page.Number
		blocks = append(blocks, pageBlocks(page.Content, meta)...)
	}
	log.Debug("Parsed blocks", "path", path, "pages", len(pages), "blocks", len(blocks))
	return blocks, nil
}

func pageBlocks(content string, meta commonModels.ChunkMetadata) []commonModels.Chunk {
	var blocks []commonModels.Chunk
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return nil
	}

	text := meta
	text.Type = commonModels.ChunkText
	blocks = append(blocks, commonModels.Chunk{Content: strings.Join(lines, "\n"), Metadata: text})

	for i, table := range detectTables(lines) {
		tm := meta
		tm.Type = commonModels.ChunkTable
		tm.TableIndex = &i
		blocks = append(blocks, commonModels.Chunk{Content: table, Metadata: tm})
	}

	var math []string
	for _, l := range lines {
		if isMathLine(l) {
			math = append(math, l)
		}
	}
	if len(math) > 0 {
		mm := meta
		mm.Type = commonModels.ChunkMath
		blocks = append(blocks, commonModels.Chunk{Content: strings.Join(math, "\n"), Metadata: mm})
	}
	return blocks
}

func nonEmptyLines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// PathMetadata returns the grade and subject directories of path relative to root.
// A file directly in a grade directory has no subject.
func PathMetadata(root string, path string) (grade string, subject string) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ""
	}
	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	if len(parts) == 1 && (parts[0] == "." || parts[0] == "") {
		return "", ""
	}
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// ExamTypeFromName infers the exam type from the file name; "" when nothing matches.
func ExamTypeFromName(path string) string {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, entry := range examTypeKeywords {
		for _, k := range entry.keywords {
			if strings.Contains(name, k) {
				return entry.examType
			}
		}
	}
	return ""
}

func isMathLine(line string) bool {
	return strings.ContainsAny(line, mathSymbols)
}

func tableCells(line string) []string {
	var cells []string
	for _, c := range cellSeparator.Split(line, -1) {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// detectTables finds runs of at least two consecutive lines that split into two or more
// cells and renders each run with " | " between cells.
func detectTables(lines []string) []string {
	var tables []string
	var run []string
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, strings.Join(run, "\n"))
		}
		run = nil
	}
	for _, l := range lines {
		cells := tableCells(l)
		if len(cells) >= 2 {
			run = append(run, strings.Join(cells, " | "))
			continue
		}
		flush()
	}
	flush()
	return tables
}
