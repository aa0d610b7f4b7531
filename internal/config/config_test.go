package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
exams_path: /data/exams
chat:
  history_length: 4
`), 0o644))

	t.Setenv("EXAMS_PATH", "/srv/exams")
	t.Setenv("ANTHROPIC_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, AnthropicModelName, cfg.LLM.Model, "model follows the provider when left at the default")
	assert.Equal(t, "/srv/exams", cfg.ExamsPath, "environment wins over the file")
	assert.Equal(t, 4, cfg.Chat.HistoryLength)
	assert.Equal(t, ExamRetrieveK, cfg.Chat.RetrieveK, "unset keys keep their defaults")
	assert.Equal(t, "key", cfg.API.AnthropicKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"complete", func(c *AppConfig) {}, ""},
		{"missing key", func(c *AppConfig) { c.API.OpenAIKey = "" }, "OPENAI_API_KEY is required"},
		{"unknown backend", func(c *AppConfig) { c.VectorStore.Backend = "faiss" }, `unknown vector backend "faiss"`},
		{"overlap too large", func(c *AppConfig) { c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize }, "chunk overlap"},
		{"zero history", func(c *AppConfig) { c.Chat.HistoryLength = 0 }, "chat history length must be positive, got 0"},
		{"negative history", func(c *AppConfig) { c.Chat.HistoryLength = -3 }, "chat history length must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.LLM.Provider, c.Embedding.Provider = "openai", "openai"
			c.VectorStore.Backend = "memory"
			c.API.OpenAIKey = "sk-test"
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("server needs an auth token", func(t *testing.T) {
		c := Default()
		c.LLM.Provider, c.Embedding.Provider = "openai", "openai"
		c.VectorStore.Backend = "memory"
		c.API.OpenAIKey = "sk-test"
		c.API.AuthToken = ""
		c.API.NoAuthBypass = false
		assert.NoError(t, c.Validate())
		assert.ErrorContains(t, c.ValidateServer(), "AUTH_TOKEN")
	})
}
