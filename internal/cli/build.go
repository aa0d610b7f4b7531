package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one collection per subject and grade",
	Long: `Parses the exams into typed blocks (text, tables, equations), chunks them and
writes one vector collection per (subject, grade) with a meta.json sidecar.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	keys, err := a.Builder.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if len(keys) == 0 {
		cmd.Println("No exams found.")
		return nil
	}
	cmd.Println("Collections:")
	for _, k := range keys {
		cmd.Printf("  %s\n", k)
	}
	return nil
}
