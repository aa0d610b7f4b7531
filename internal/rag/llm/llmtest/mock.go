package llmtest

import (
	"context"
	"sync"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
)

// MockProvider records every call and answers with OnComplete.
type MockProvider struct {
	OnComplete func(ctx context.Context, messages []examModel.Message) (string, error)

	mu    sync.Mutex
	calls [][]examModel.Message
}

func (m *MockProvider) Complete(ctx context.Context, messages []examModel.Message, _ ...llm.Option) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()
	if m.OnComplete == nil {
		return "", nil
	}
	return m.OnComplete(ctx, messages)
}

func (m *MockProvider) ModelName() string {
	return "mock-model"
}

func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Prompts returns the last message of every call.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		if len(c) > 0 {
			out = append(out, c[len(c)-1].Content)
		}
	}
	return out
}

// Reply always answers with the same text.
func Reply(text string) *MockProvider {
	return &MockProvider{OnComplete: func(context.Context, []examModel.Message) (string, error) {
		return text, nil
	}}
}
