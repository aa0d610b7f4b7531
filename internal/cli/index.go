package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	indexForce bool
	indexDir   string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Parse, chunk and embed every exam under the exams directory",
	Long: `Runs the three pipeline stages. Files already handled by a stage are skipped
unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "redo every stage for every file")
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", "", "exams directory (overrides config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexForce {
		cfg.ForceReload = true
	}
	if indexDir != "" {
		cfg.ExamsPath = indexDir
	}
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := a.Pipeline.ProcessAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	cmd.Printf("Parsed %d (%d failed), chunked %d (%d failed), embedded %d (%d failed), %d chunks\n",
		stats.Parsed, stats.ParseFailed, stats.Chunked, stats.ChunkFailed, stats.Embedded, stats.EmbedFailed, stats.Chunks)
	return nil
}
