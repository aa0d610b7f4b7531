package cli

import (
	"github.com/akolanti/ExamAPI/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the exam tools over MCP (stdio)",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the tools
generate_exam, clarify_request, route_request and search_exams.

Example client configuration:
  {
    "mcpServers": {
      "exams": {
        "command": "/path/to/examctl",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		server, err := mcpserver.NewServer(&mcpserver.Ports{
			Exams:  a.ExamAgent,
			Router: a.Router,
			Search: a.Store,
		})
		if err != nil {
			return err
		}
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
