package rag_test

import (
	"context"
	"sync"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
)

// MockExamAgent implements rag.ExamAgent
type MockExamAgent struct {
	OnSendMessage     func(ctx context.Context, message string) (string, error)
	OnClarify         func(ctx context.Context, message string) (examModel.Clarification, error)
	OnSuggestFollowUp func(ctx context.Context, history *examModel.History) (string, error)
}

func (m *MockExamAgent) SendMessage(ctx context.Context, message string) (string, error) {
	if m.OnSendMessage != nil {
		return m.OnSendMessage(ctx, message)
	}
	return "mocked exam", nil
}

func (m *MockExamAgent) AskForClarification(ctx context.Context, message string) (examModel.Clarification, error) {
	if m.OnClarify != nil {
		return m.OnClarify(ctx, message)
	}
	return examModel.Clarification{}, nil
}

func (m *MockExamAgent) SuggestFollowUp(ctx context.Context, history *examModel.History) (string, error) {
	if m.OnSuggestFollowUp != nil {
		return m.OnSuggestFollowUp(ctx, history)
	}
	return "", nil
}

func (m *MockExamAgent) NewHistory() *examModel.History {
	return examModel.NewHistory(examModel.SystemMessage("system"), 10)
}

// MockRouter implements rag.RequestRouter
type MockRouter struct {
	mu      sync.Mutex
	OnRoute func(ctx context.Context, q agents.Query) (string, error)
	Queries []agents.Query
}

func (m *MockRouter) Route(ctx context.Context, q agents.Query) (string, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, q)
	m.mu.Unlock()
	if m.OnRoute != nil {
		return m.OnRoute(ctx, q)
	}
	return "routed", nil
}

// MockIndexer implements pipeline.Indexer
type MockIndexer struct {
	OnIndex func(ctx context.Context, chunks []string) (int, error)
}

func (m *MockIndexer) Index(ctx context.Context, chunks []string) (int, error) {
	if m.OnIndex != nil {
		return m.OnIndex(ctx, chunks)
	}
	return len(chunks), nil
}

// MockCollectionBuilder implements rag.CollectionBuilder and records every directory it was asked to build.
type MockCollectionBuilder struct {
	OnBuildDir func(ctx context.Context, dir string) ([]string, error)

	mu   sync.Mutex
	dirs []string
}

func (m *MockCollectionBuilder) BuildDir(ctx context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
	if m.OnBuildDir != nil {
		return m.OnBuildDir(ctx, dir)
	}
	return []string{"physics_grade_12"}, nil
}

func (m *MockCollectionBuilder) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs
}
