package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := Execute(context.Background())
	return buf.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"index", "build", "inspect", "watch", "mcp"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	versioned := filepath.Join(dir, "versioned")
	require.NoError(t, os.MkdirAll(filepath.Join(versioned, "biology_grade_10"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versioned, "biology_grade_10", "meta.json"),
		[]byte(`{"collection_name":"biology_grade_10","embedding_model":"text-embedding-3-small","total_chunks":42}`), 0o644))

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("pipeline:\n  versioned_output_dir: "+versioned+"\n"), 0o644))

	t.Run("built collection", func(t *testing.T) {
		out, err := execute(t, "inspect", "Biology", "Grade 10", "--config", configFile)
		require.NoError(t, err)
		assert.Contains(t, out, `"total_chunks": 42`)
	})

	t.Run("missing collection", func(t *testing.T) {
		_, err := execute(t, "inspect", "Physics", "Grade 12", "--config", configFile)
		assert.ErrorContains(t, err, "physics_grade_12 has not been built")
	})

	t.Run("needs two arguments", func(t *testing.T) {
		_, err := execute(t, "inspect", "Physics", "--config", configFile)
		assert.Error(t, err)
	})
}
