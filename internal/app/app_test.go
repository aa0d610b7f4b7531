package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/rag/embedding/embeddingtest"
	"github.com/akolanti/ExamAPI/internal/rag/llm/llmtest"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planReply = `{"exercises": {"1": {"topic": "mechanics", "grade": "Grade 12", "description": "forces", "general_question": "Study the motion of a cart.", "subquestions": ["State Newton's second law."]}}}`

func scriptedLLM() *llmtest.MockProvider {
	return &llmtest.MockProvider{OnComplete: func(_ context.Context, messages []examModel.Message) (string, error) {
		prompt := messages[len(messages)-1].Content
		switch {
		case strings.Contains(prompt, "belongs to an exam document"):
			return `{"branch": ["general science"], "subject": "Physics", "title": "Mechanics exam"}`, nil
		case strings.Contains(prompt, "structured exam plan"):
			return planReply, nil
		case strings.Contains(prompt, "generating a single exercise"):
			return "Exercise on forces", nil
		case strings.Contains(prompt, "EXAMS AND EXERCISES"):
			return "Newton's laws exercise", nil
		case strings.Contains(prompt, "reformat the exam"):
			return "FINAL EXAM", nil
		}
		return "1. What does chlorophyll absorb?", nil
	}}
}

func testApp(t *testing.T) (*App, *llmtest.MockProvider) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.ExamsPath = filepath.Join(root, "exams")
	cfg.Pipeline.ParsedDir = filepath.Join(root, "parsed")
	cfg.Pipeline.ChunkedDir = filepath.Join(root, "chunked")
	cfg.Pipeline.VersionedOutputDir = filepath.Join(root, "versioned")

	db, err := memoryDB.New("")
	require.NoError(t, err)
	p := scriptedLLM()
	return Wire(cfg, p, embeddingtest.NewHashEmbedder(), db), p
}

func writeExam(t *testing.T, a *App, rel string, content string) string {
	t.Helper()
	path := filepath.Join(a.Config.ExamsPath, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ingestJob(id string, path string) jobModel.Job {
	return jobModel.Job{Id: id, JobPayload: jobModel.JobPayload{IngestFileName: filepath.Base(path), IngestPath: path}}
}

func TestIngestThenGenerateExam(t *testing.T) {
	a, p := testApp(t)
	ctx := context.Background()
	path := writeExam(t, a, "Grade 12/Physics/bac_2021.txt", "Exercise 1. A cart of mass 2 kg is pushed. Apply Newton's second law to find its acceleration.")

	ingested := a.RAG.IngestDocument(ctx, ingestJob("ingest-1", path))
	require.NotEqual(t, jobModel.JobStatusError, ingested.Status, ingested.Error.Message)
	assert.Contains(t, ingested.JobPayload.Answer, "embedded 1 files")
	assert.Contains(t, ingested.JobPayload.Answer, "collections: physics_grade_12")

	generated := a.RAG.GenerateExam(ctx, jobModel.Job{Id: "exam-1", JobPayload: jobModel.JobPayload{Question: "Grade 12 physics exam on mechanics"}}, nil)
	require.NotEqual(t, jobModel.JobStatusError, generated.Status, generated.Error.Message)
	assert.Equal(t, "FINAL EXAM", generated.JobPayload.Answer)

	var planPrompt string
	for _, prompt := range p.Prompts() {
		if strings.Contains(prompt, "structured exam plan") {
			planPrompt = prompt
		}
	}
	assert.Contains(t, planPrompt, "Newton's second law", "indexed exam text reaches the plan prompt")
}

func TestVersionedBuildFeedsRouter(t *testing.T) {
	a, p := testApp(t)
	ctx := context.Background()
	writeExam(t, a, "Grade 10/Biology/midterm.txt", "Photosynthesis happens in the chloroplast. Chlorophyll absorbs red and blue light.")

	keys, err := a.Builder.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"biology_grade_10"}, keys)

	answer, err := a.Router.Route(ctx, agents.Structured{
		Intent:       agents.IntentGenerateQuestions,
		Subject:      "Biology",
		Grade:        "Grade 10",
		Topic:        "photosynthesis",
		NumQuestions: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "1. What does chlorophyll absorb?", answer)

	prompts := p.Prompts()
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[len(prompts)-1], "Chlorophyll absorbs red and blue light")
}

func TestIngestJobFeedsRoutedRequests(t *testing.T) {
	a, p := testApp(t)
	ctx := context.Background()
	path := writeExam(t, a, "Grade 10/Biology/midterm.txt", "Photosynthesis happens in the chloroplast. Chlorophyll absorbs red and blue light.")

	ingested := a.RAG.IngestDocument(ctx, ingestJob("ingest-2", path))
	require.NotEqual(t, jobModel.JobStatusError, ingested.Status, ingested.Error.Message)
	assert.Contains(t, ingested.JobPayload.Answer, "collections: biology_grade_10")

	routed := a.RAG.RouteRequest(ctx, jobModel.Job{Id: "route-1", JobPayload: jobModel.JobPayload{
		Route: &jobModel.RoutePayload{
			Intent:       string(agents.IntentGenerateQuestions),
			Subject:      "Biology",
			Grade:        "Grade 10",
			Topic:        "photosynthesis",
			NumQuestions: 1,
		},
	}})
	require.NotEqual(t, jobModel.JobStatusError, routed.Status, routed.Error.Message)
	assert.Equal(t, "1. What does chlorophyll absorb?", routed.JobPayload.Answer)

	prompts := p.Prompts()
	require.NotEmpty(t, prompts)
	last := prompts[len(prompts)-1]
	assert.Contains(t, last, "Chlorophyll absorbs red and blue light")
	assert.NotContains(t, last, "No context found")
}
