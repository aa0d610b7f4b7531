package agents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/embeddingtest"
	"github.com/akolanti/ExamAPI/internal/rag/llm/llmtest"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/ExamAPI/internal/rag/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mu      sync.Mutex
	OnGet   func(question string) (string, bool)
	Stored  map[string]string
	putDone chan struct{}
	getKeys []string
}

func (m *MockCache) Get(_ context.Context, question string) (string, bool) {
	m.mu.Lock()
	m.getKeys = append(m.getKeys, question)
	m.mu.Unlock()
	if m.OnGet == nil {
		return "", false
	}
	return m.OnGet(question)
}

func (m *MockCache) Put(_ context.Context, question string, answer string) error {
	m.mu.Lock()
	if m.Stored == nil {
		m.Stored = map[string]string{}
	}
	m.Stored[question] = answer
	m.mu.Unlock()
	if m.putDone != nil {
		m.putDone <- struct{}{}
	}
	return nil
}

func biologyCollections(t *testing.T) *vectorstore.Versioned {
	t.Helper()
	db, err := memoryDB.New("")
	require.NoError(t, err)
	v := vectorstore.NewVersioned(db, embeddingtest.NewHashEmbedder(), t.TempDir())
	_, err = v.BuildAll(context.Background(), []commonModels.Chunk{
		{
			Content:  "Photosynthesis converts light into chemical energy stored in glucose inside the chloroplast.",
			Metadata: commonModels.ChunkMetadata{Subject: "biology", Grade: "grade_10", Type: commonModels.ChunkText, Source: "bio.txt", Page: 1},
		},
		{
			Content:  "Cellular respiration releases energy from glucose in the mitochondria.",
			Metadata: commonModels.ChunkMetadata{Subject: "biology", Grade: "grade_10", Type: commonModels.ChunkText, Source: "bio.txt", Page: 2},
		},
	})
	require.NoError(t, err)
	return v
}

var createPattern = regexp.MustCompile(`Create (\d+) (\w+) questions for grade (\S+) in (\S+) on the topic of "([^"]+)"`)

// questionWriter numbers one question per requested item, each built from the retrieved context.
func questionWriter() *llmtest.MockProvider {
	return &llmtest.MockProvider{OnComplete: func(_ context.Context, messages []examModel.Message) (string, error) {
		prompt := messages[len(messages)-1].Content
		m := createPattern.FindStringSubmatch(prompt)
		if m == nil {
			return "", fmt.Errorf("unexpected prompt %q", prompt)
		}
		n, _ := strconv.Atoi(m[1])
		source := "general knowledge"
		if strings.Contains(prompt, "Photosynthesis converts light") {
			source = "the chloroplast"
		}
		lines := make([]string, n)
		for i := range lines {
			lines[i] = fmt.Sprintf("%d. Question %d on %s: explain the role of %s.", i+1, i+1, m[5], source)
		}
		return strings.Join(lines, "\n"), nil
	}}
}

func TestGenerateQuestionsEndToEnd(t *testing.T) {
	provider := questionWriter()
	router := NewRouter(provider, biologyCollections(t), nil)

	out, err := router.Route(context.Background(), Structured{
		Intent:       IntentGenerateQuestions,
		Subject:      "biology",
		Grade:        "grade_10",
		Topic:        "photosynthesis",
		NumQuestions: 3,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, strconv.Itoa(i+1)+". "), line)
		assert.Contains(t, strings.ToLower(line), "photosynthesis")
	}
	assert.Contains(t, out, "chloroplast", "the retrieved chunk must reach the prompt")

	prompt := provider.Prompts()[0]
	assert.Contains(t, prompt, "Create 3 mixed questions for grade grade_10 in biology")
	assert.Contains(t, prompt, "Use this context to help craft the questions:")
}

func TestRouteMissingFieldsMakeNoModelCall(t *testing.T) {
	tests := []struct {
		intent Intent
		want   string
	}{
		{IntentAnswerQuestion, "❌ 'subject', 'grade', and 'question' are required."},
		{IntentClarify, "❌ 'subject', 'grade', and 'query' are required for clarification."},
		{IntentGenerateExam, "❌ 'subject' and 'grade' are required."},
		{IntentGenerateQuestions, "❌ 'subject', 'grade', and 'topic' are required."},
		{IntentRetrieveExam, "❌ Missing subject or grade."},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			provider := llmtest.Reply("should not be called")
			router := NewRouter(provider, biologyCollections(t), nil)

			out, err := router.Route(context.Background(), Structured{Intent: tt.intent, Subject: "biology"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.True(t, strings.HasPrefix(out, ErrorMarker))
			assert.Equal(t, 0, provider.Calls())
		})
	}
}

func TestRouteFreeText(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"unknown intent", "summarize_notes", "❓ Unknown intent: summarize_notes"},
		{"label is normalised", " Generate_Exam.\n", "❌ 'subject' and 'grade' are required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llmtest.Reply(tt.label)
			router := NewRouter(provider, nil, nil)

			out, err := router.Route(context.Background(), FreeText("make me something"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			require.Equal(t, 1, provider.Calls())
			assert.Contains(t, provider.Prompts()[0], "User message: make me something")
		})
	}
}

func TestRouteStructuredInput(t *testing.T) {
	provider := llmtest.Reply("retrieve_exam")
	router := NewRouter(provider, nil, nil)

	out, err := router.Route(context.Background(), Structured{Query: "show me an exam", Subject: "math", Grade: "grade_9"})
	require.NoError(t, err)
	assert.Equal(t, "No data available for math, grade_9", out)
	assert.Equal(t, 1, provider.Calls(), "only the classification call")

	out, err = router.Route(context.Background(), Structured{Subject: "math"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, ErrorMarker))

	out, err = router.Route(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "❌ Invalid input format.", out)
	assert.Equal(t, 1, provider.Calls())
}

func TestExamGeneratorDefaultsWithoutContext(t *testing.T) {
	provider := llmtest.Reply("1. What is a force?")
	agent := NewExamGeneratorAgent(provider, biologyCollections(t))

	out, err := agent.Run(context.Background(), Request{Subject: "physics", Grade: "grade_11"})
	require.NoError(t, err)
	assert.Equal(t, "1. What is a force?", out)

	prompt := provider.Prompts()[0]
	assert.Contains(t, prompt, "Generate a 10-question final exam for grade grade_11 in the subject of physics.")
	assert.Contains(t, prompt, "No context available from database. Use general knowledge.")
	assert.NotContains(t, prompt, "Focus on the topic")
}

func TestExamRetrieverUsesCollection(t *testing.T) {
	provider := llmtest.Reply("Exam I ...")
	agent := NewExamRetrieverAgent(provider, biologyCollections(t))

	out, err := agent.Run(context.Background(), Request{Subject: "Biology", Grade: "grade_10"})
	require.NoError(t, err)
	assert.Equal(t, "Exam I ...", out)

	prompt := provider.Prompts()[0]
	assert.Contains(t, prompt, "Question: Retrieve a complete any exam in Biology for grade_10.")
	assert.Contains(t, prompt, "mitochondria")
}

func TestAnswerAgentCache(t *testing.T) {
	cache := &MockCache{OnGet: func(q string) (string, bool) {
		if strings.HasSuffix(q, "What is osmosis?") {
			return "cached answer", true
		}
		return "", false
	}, putDone: make(chan struct{}, 1)}
	provider := llmtest.Reply("fresh answer")
	agent := NewAnswerAgent(provider, nil, cache)

	out, err := agent.Run(context.Background(), Request{Subject: "biology", Grade: "grade_10", Question: "What is osmosis?"})
	require.NoError(t, err)
	assert.Equal(t, "cached answer", out)
	assert.Equal(t, 0, provider.Calls())

	out, err = agent.Run(context.Background(), Request{Subject: "biology", Grade: "grade_10", Question: "What is diffusion?"})
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", out)
	assert.Contains(t, provider.Prompts()[0], "No context found. Answer based on your knowledge.")

	<-cache.putDone
	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, "fresh answer", cache.Stored["biology | grade_10 | What is diffusion?"])
}
