package mcpserver

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ExamInput struct {
	Request string `json:"request" jsonschema:"the exam request, e.g. a grade 12 physics exam on mechanics"`
}

type ExamOutput struct {
	Exam string `json:"exam"`
}

type ClarifyOutput struct {
	ClarificationNeeded bool   `json:"clarification_needed"`
	Clarification       string `json:"clarification,omitempty"`
}

type RouteInput struct {
	Message      string `json:"message,omitempty" jsonschema:"free text request; the intent is classified from it"`
	Intent       string `json:"intent,omitempty" jsonschema:"one of retrieve_exam, generate_exam, generate_questions, answer_question, clarify"`
	Query        string `json:"query,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Grade        string `json:"grade,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Question     string `json:"question,omitempty"`
	ExamType     string `json:"exam_type,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
}

type RouteOutput struct {
	Answer string `json:"answer"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"what to look for in the indexed exams"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type SearchResult struct {
	Subject string `json:"subject,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Branch  string `json:"branch,omitempty"`
	Title   string `json:"title,omitempty"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_exam",
		Description: "Generate a complete exam from the indexed official exams",
	}, s.handleGenerateExam)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clarify_request",
		Description: "Ask whether an exam request needs a clarifying question first",
	}, s.handleClarify)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "route_request",
		Description: "Send a free text or structured request to the matching exam agent",
	}, s.handleRoute)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_exams",
		Description: "Search the indexed exam chunks",
	}, s.handleSearch)
}

func (s *Server) handleGenerateExam(ctx context.Context, _ *mcp.CallToolRequest, input ExamInput) (*mcp.CallToolResult, ExamOutput, error) {
	if input.Request == "" {
		return nil, ExamOutput{}, fmt.Errorf("request is required")
	}
	exam, err := s.ports.Exams.SendMessage(ctx, input.Request)
	if err != nil {
		return nil, ExamOutput{}, err
	}
	return nil, ExamOutput{Exam: exam}, nil
}

func (s *Server) handleClarify(ctx context.Context, _ *mcp.CallToolRequest, input ExamInput) (*mcp.CallToolResult, ClarifyOutput, error) {
	if input.Request == "" {
		return nil, ClarifyOutput{}, fmt.Errorf("request is required")
	}
	c, err := s.ports.Exams.AskForClarification(ctx, input.Request)
	if err != nil {
		return nil, ClarifyOutput{}, err
	}
	return nil, ClarifyOutput{ClarificationNeeded: c.Needed, Clarification: c.Text}, nil
}

func (s *Server) handleRoute(ctx context.Context, _ *mcp.CallToolRequest, input RouteInput) (*mcp.CallToolResult, RouteOutput, error) {
	answer, err := s.ports.Router.Route(ctx, toQuery(input))
	if err != nil {
		return nil, RouteOutput{}, err
	}
	return nil, RouteOutput{Answer: answer}, nil
}

// toQuery treats a bare message as free text; any structured field makes it a structured request.
func toQuery(in RouteInput) agents.Query {
	structured := agents.Structured{
		Intent:       agents.Intent(in.Intent),
		Query:        in.Query,
		Subject:      in.Subject,
		Grade:        in.Grade,
		Topic:        in.Topic,
		Question:     in.Question,
		ExamType:     in.ExamType,
		QuestionType: in.QuestionType,
		NumQuestions: in.NumQuestions,
	}
	if in.Message != "" && structured == (agents.Structured{}) {
		return agents.FreeText(in.Message)
	}
	if structured.Query == "" {
		structured.Query = in.Message
	}
	return structured
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = config.ExamRetrieveK
	}
	chunks, err := s.ports.Search.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResult, len(chunks)), Count: len(chunks)}
	for i, c := range chunks {
		content := c.Metadata.FullChunk
		if content == "" {
			content = c.Content
		}
		out.Results[i] = SearchResult{
			Subject: c.Metadata.Subject,
			Grade:   c.Metadata.Grade,
			Branch:  c.Metadata.Branch,
			Title:   c.Metadata.Title,
			Source:  c.Metadata.Source,
			Content: content,
		}
	}
	return nil, out, nil
}
