// Package mcpserver exposes exam generation and the agent router as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/agents"
	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

var ErrMissingPorts = errors.New("mcpserver: exam agent, router and search are required")

type ExamAgent interface {
	SendMessage(ctx context.Context, message string) (string, error)
	AskForClarification(ctx context.Context, message string) (examModel.Clarification, error)
}

type Router interface {
	Route(ctx context.Context, q agents.Query) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]commonModels.Chunk, error)
}

type Ports struct {
	Exams  ExamAgent
	Router Router
	Search Searcher
}

func (p *Ports) Validate() error {
	if p.Exams == nil || p.Router == nil || p.Search == nil {
		return ErrMissingPorts
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *mcp.Server
	logger *logger_i.Logger
}

func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "examapi", Version: Version}, nil),
		logger: logger_i.NewLogger("mcp_server"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
