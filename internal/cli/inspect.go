package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/akolanti/ExamAPI/internal/rag/vectorstore"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <subject> <grade>",
	Short: "Show the sidecar of a built collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	key := vectorstore.CollectionKey(args[0], args[1])
	// the sidecar lives on disk, so no providers are needed
	sidecar, err := vectorstore.NewVersioned(nil, nil, cfg.Pipeline.VersionedOutputDir).ReadSidecar(key)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("collection %s has not been built", key)
	}
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
