// Package cli is the examctl command tree: offline indexing, versioned builds,
// collection inspection, directory watching and the MCP server.
package cli

import (
	"context"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/app"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "examctl",
	Short: "Index official exams and serve the exam tools",
	Long: `examctl runs the exam indexing pipeline without the HTTP API.

It reads the same configuration as the API server (yaml file, then environment).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loaded.Log.Stderr = true
		logger_i.Init(loaded.Log)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file")
}

// Execute runs the command tree with ctx as every command's context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// buildApp validates the loaded config and creates the providers.
func buildApp(ctx context.Context) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.Build(ctx, cfg)
}
