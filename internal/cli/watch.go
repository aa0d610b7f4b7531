package cli

import (
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-index whenever exams are added or changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		cmd.PrintErrf("Watching %s\n", a.Pipeline.ExamsPath())
		return a.Pipeline.Watch(cmd.Context(), config.WatchDebounce, a.Builder)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
