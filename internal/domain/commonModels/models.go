package commonModels

import "strings"

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkTable ChunkType = "table"
	ChunkMath  ChunkType = "math_equation"
)

// ChunkMetadata travels with a chunk from the parser to the vector payload.
// ChunkIndex is only set on text chunks, TableIndex only on tables.
type ChunkMetadata struct {
	Subject    string    `json:"subject"`
	Grade      string    `json:"grade"`
	Type       ChunkType `json:"type"`
	Source     string    `json:"source"`
	Page       int       `json:"page"`
	ExamType   string    `json:"exam_type,omitempty"`
	TableIndex *int      `json:"table_index,omitempty"`
	ChunkIndex *int      `json:"chunk_index,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	Title      string    `json:"title,omitempty"`
	FullChunk  string    `json:"full_chunk,omitempty"`
}

// Chunk is both a parsed block and an indexed chunk; the parser and the chunker share the shape.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

const BranchSeparator = "|"

// AllowedBranches is the closed curriculum-track vocabulary, lower case.
var AllowedBranches = []string{
	"general science",
	"life science",
	"arts and humanities",
	"social and economic sciences",
	"middle school certificate",
}

const (
	FallbackBranch  = "general science"
	FallbackSubject = "UNKNOWN"
	FallbackTitle   = "Untitled"
)

type ExamMetadata struct {
	Branch  []string `json:"branch"`
	Subject string   `json:"subject"`
	Title   string   `json:"title"`
}

// FallbackMetadata is stored when extraction fails so that no chunk is ever dropped.
func FallbackMetadata(title string) ExamMetadata {
	if title == "" {
		title = FallbackTitle
	}
	return ExamMetadata{
		Branch:  []string{FallbackBranch},
		Subject: FallbackSubject,
		Title:   title,
	}
}

// EmbeddingText is the short descriptor that gets embedded instead of the raw text.
func (m ExamMetadata) EmbeddingText() string {
	return strings.Join(m.Branch, " | ") + " | " + m.Subject + " | " + m.Title
}

func (m ExamMetadata) JoinedBranches() string {
	return strings.Join(m.Branch, BranchSeparator)
}

func IsAllowedBranch(b string) bool {
	for _, allowed := range AllowedBranches {
		if allowed == b {
			return true
		}
	}
	return false
}
