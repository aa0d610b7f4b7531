package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/patrickmn/go-cache"
)

const promptTemplate = `You are given a chunk of text that belongs to an exam document.
Extract the following JSON ONLY (no extra keys, no markdown). The "branch" field MUST be a list whose elements are chosen ONLY from the following English terms exactly as written (case-insensitive): [%s]. If more than one branch applies include all relevant entries; otherwise use an empty list [].
{
  "branch": ["<one or more from the allowed list>"],
  "subject": "<course name>",
  "title":   "<a 1-sentence descriptive title in English>"
}
Chunk:
%s
JSON:`

// Extractor tags chunks and queries with the same schema so that stored
// descriptors and query descriptors live in one embedding space.
type Extractor struct {
	llm    llm.Provider
	limit  int
	cache  *cache.Cache
	logger *logger_i.Logger
}

func NewExtractor(p llm.Provider) *Extractor {
	return &Extractor{
		llm:    p,
		limit:  config.MetadataPromptLimit,
		cache:  cache.New(config.MetadataCacheTTL, 2*config.MetadataCacheTTL),
		logger: logger_i.NewLogger("metadata_extractor"),
	}
}

// Extract never fails the caller: any model or parse error yields nil and the
// caller substitutes fallback metadata.
func (e *Extractor) Extract(ctx context.Context, text string) *commonModels.ExamMetadata {
	log := e.logger.FromContext(ctx)
	text = Truncate(text, e.limit)

	key := cacheKey(text)
	if cached, ok := e.cache.Get(key); ok {
		m := cached.(commonModels.ExamMetadata)
		return &m
	}

	raw, err := llm.Prompt(ctx, e.llm, "metadata", BuildPrompt(text), llm.WithJSONResponse())
	if err != nil {
		log.Warn("Metadata extraction call failed", "error", err)
		return nil
	}
	m, err := ParseMetadata(llm.StripCodeFence(raw))
	if err != nil {
		log.Warn("Metadata parse failed", "error", err, "raw", raw)
		return nil
	}
	e.cache.Set(key, *m, cache.DefaultExpiration)
	return m
}

func BuildPrompt(text string) string {
	quoted := make([]string, len(commonModels.AllowedBranches))
	for i, b := range commonModels.AllowedBranches {
		quoted[i] = `"` + b + `"`
	}
	return fmt.Sprintf(promptTemplate, strings.Join(quoted, ", "), text)
}

type rawMetadata struct {
	Branch  json.RawMessage `json:"branch"`
	Subject *string         `json:"subject"`
	Title   *string         `json:"title"`
}

// ParseMetadata accepts a branch given as a single string or a list, drops
// out-of-vocabulary entries and requires subject and title to be present.
func ParseMetadata(raw string) (*commonModels.ExamMetadata, error) {
	var r rawMetadata
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if r.Subject == nil || r.Title == nil {
		return nil, errors.New("metadata is missing subject or title")
	}

	var branches []string
	if len(r.Branch) > 0 && string(r.Branch) != "null" {
		var single string
		if err := json.Unmarshal(r.Branch, &single); err == nil {
			branches = []string{single}
		} else if err := json.Unmarshal(r.Branch, &branches); err != nil {
			return nil, fmt.Errorf("branch must be a string or a list of strings: %w", err)
		}
	}

	return &commonModels.ExamMetadata{
		Branch:  NormaliseBranches(branches),
		Subject: *r.Subject,
		Title:   *r.Title,
	}, nil
}

// NormaliseBranches lower-cases and trims each entry and keeps the allowed ones, in order.
func NormaliseBranches(branches []string) []string {
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		b = strings.ToLower(strings.TrimSpace(b))
		if commonModels.IsAllowedBranch(b) {
			out = append(out, b)
		}
	}
	return out
}

// Truncate cuts text to at most limit runes; limit <= 0 keeps everything.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
