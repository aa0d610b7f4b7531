package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		branches []string
		subject  string
		wantErr  bool
	}{
		{
			name:     "list with out of vocabulary entry",
			raw:      `{"branch":["Life Science","physics"],"subject":"Biology","title":"Cell division"}`,
			branches: []string{"life science"},
			subject:  "Biology",
		},
		{
			name:     "single string branch",
			raw:      `{"branch":" General Science ","subject":"Physics","title":"Waves"}`,
			branches: []string{"general science"},
			subject:  "Physics",
		},
		{
			name:     "empty branch list",
			raw:      `{"branch":[],"subject":"History","title":"WW1"}`,
			branches: []string{},
			subject:  "History",
		},
		{name: "missing title", raw: `{"branch":[],"subject":"History"}`, wantErr: true},
		{name: "not json", raw: `the subject is physics`, wantErr: true},
		{name: "branch is a number", raw: `{"branch":3,"subject":"a","title":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMetadata(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.branches, m.Branch)
			assert.Equal(t, tt.subject, m.Subject)
		})
	}
}

func TestNormaliseBranches(t *testing.T) {
	got := NormaliseBranches([]string{"ARTS AND HUMANITIES", "  social and economic sciences", "math", ""})
	assert.Equal(t, []string{"arts and humanities", "social and economic sciences"}, got)
}

func TestExtractFailsSoft(t *testing.T) {
	bad := llmtest.Reply("sorry, I cannot help with that")
	assert.Nil(t, NewExtractor(bad).Extract(context.Background(), "some chunk"))

	failing := &llmtest.MockProvider{OnComplete: func(context.Context, []examModel.Message) (string, error) {
		return "", errors.New("boom")
	}}
	assert.Nil(t, NewExtractor(failing).Extract(context.Background(), "some chunk"))
}

func TestExtractStripsFenceAndCaches(t *testing.T) {
	p := llmtest.Reply("```json\n{\"branch\":[\"general science\"],\"subject\":\"Physics\",\"title\":\"Optics\"}\n```")
	e := NewExtractor(p)

	m := e.Extract(context.Background(), "lenses and mirrors")
	require.NotNil(t, m)
	assert.Equal(t, "general science | Physics | Optics", m.EmbeddingText())

	again := e.Extract(context.Background(), "lenses and mirrors")
	require.NotNil(t, again)
	assert.Equal(t, 1, p.Calls())
}

func TestExtractTruncatesInput(t *testing.T) {
	p := llmtest.Reply(`{"branch":[],"subject":"s","title":"t"}`)
	long := strings.Repeat("é", 5000)

	NewExtractor(p).Extract(context.Background(), long)

	prompt := p.Prompts()[0]
	assert.Contains(t, prompt, strings.Repeat("é", 4000))
	assert.NotContains(t, prompt, strings.Repeat("é", 4001))
	assert.Contains(t, prompt, `"middle school certificate"`)
}
