package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is built once at startup and handed to every constructor.
// Nothing below cmd/ reads the environment directly.
type AppConfig struct {
	LLM         LLMConfig         `yaml:"llm"`
	API         APIConfig         `yaml:"api"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Chat        ChatConfig        `yaml:"chat"`
	Server      ServerConfig      `yaml:"server"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         LogConfig         `yaml:"log"`
	ExamsPath   string            `yaml:"exams_path"`
	ForceReload bool              `yaml:"force_reload"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float32 `yaml:"top_p"`
}

type APIConfig struct {
	OpenAIKey    string `yaml:"openai_api_key"`
	GoogleKey    string `yaml:"google_api_key"`
	AnthropicKey string `yaml:"anthropic_api_key"`
	AuthToken    string `yaml:"auth_token"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int32  `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

type VectorStoreConfig struct {
	Backend          string `yaml:"backend"`
	PersistDirectory string `yaml:"persist_directory"`
	Collection       string `yaml:"collection"`
	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantUseTLS     bool   `yaml:"qdrant_use_tls"`
	QdrantPoolSize   int    `yaml:"qdrant_pool_size"`
}

type PipelineConfig struct {
	ParsedDir          string `yaml:"parsed_dir"`
	ChunkedDir         string `yaml:"chunked_dir"`
	VersionedOutputDir string `yaml:"versioned_output_dir"`
	MaxConcurrency     int    `yaml:"max_concurrency"`
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
}

type ChatConfig struct {
	HistoryLength      int `yaml:"history_length"`
	RetrieveK          int `yaml:"retrieve_k"`
	MaxFillConcurrency int `yaml:"max_fill_concurrency"`
	// CompileMaxTokens raises the output cap for the final exam document; 0 keeps the LLM default.
	CompileMaxTokens int `yaml:"compile_max_tokens"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Fallback bool   `yaml:"fallback_to_memory"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	// Stderr keeps stdout free, as the MCP stdio transport needs
	Stderr bool `yaml:"stderr"`
}

// Default returns the compiled-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		LLM: LLMConfig{
			Provider:    LLMProvider,
			Model:       OpenAIModelName,
			Temperature: ModelTemperature,
			MaxTokens:   ModelMaxTokens,
			TopP:        ModelTopP,
		},
		API: APIConfig{
			AuthToken:    AuthToken,
			NoAuthBypass: NoAuthBypass,
		},
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingProvider,
			Model:     OpenAIEmbeddingModel,
			Dimension: EmbeddingOutputDimensionality,
			BatchSize: EmbeddingBatchSize,
		},
		VectorStore: VectorStoreConfig{
			Backend:          VectorBackend,
			PersistDirectory: VectorPersistDirectory,
			Collection:       ExamsCollection,
			QdrantHost:       QdrantHost,
			QdrantPort:       QdrantGrpcPort,
			QdrantUseTLS:     QdrantUseTLS,
			QdrantPoolSize:   QdrantPoolSize,
		},
		Pipeline: PipelineConfig{
			ParsedDir:          ParsedDir,
			ChunkedDir:         ChunkedDir,
			VersionedOutputDir: VersionedOutputDir,
			MaxConcurrency:     PipelineConcurrency,
			ChunkSize:          ChunkSize,
			ChunkOverlap:       ChunkOverlap,
		},
		Chat: ChatConfig{
			HistoryLength:      HistoryLength,
			RetrieveK:          ExamRetrieveK,
			MaxFillConcurrency: MaxFillConcurrency,
		},
		Server: ServerConfig{ListenAddr: ServerListenAddr},
		Redis: RedisConfig{
			Addr:     RedisAddr,
			Password: RedisPassword,
			Fallback: FALLBACK_REDIS_TO_INTERNALSTORE,
		},
		Log: LogConfig{
			MaxSizeMB:  LogMaxSizeMB,
			MaxBackups: LogMaxBackups,
			MaxAgeDays: LogMaxAgeDays,
		},
		ExamsPath:   ExamsPath,
		ForceReload: ForceReload,
	}
}

// Load layers the optional yaml file over the defaults, then the environment over both.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("EXAMAPI_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyProviderDefaults()
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	setString(&c.API.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.API.GoogleKey, "GOOGLE_API_KEY")
	setString(&c.API.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.API.AuthToken, "AUTH_TOKEN")
	setBool(&c.API.NoAuthBypass, "NO_AUTH_BYPASS")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")

	setString(&c.VectorStore.Backend, "VECTOR_BACKEND")
	setString(&c.VectorStore.PersistDirectory, "VECTOR_PERSIST_DIRECTORY")
	setString(&c.VectorStore.QdrantHost, "QDRANT_HOST")
	setInt(&c.VectorStore.QdrantPort, "QDRANT_PORT")

	setString(&c.ExamsPath, "EXAMS_PATH")
	setBool(&c.ForceReload, "FORCE_RELOAD")
	setInt(&c.Chat.HistoryLength, "CHAT_HISTORY_LENGTH")

	setString(&c.Server.ListenAddr, "LISTEN_ADDR")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Log.File, "LOG_FILE")
}

// applyProviderDefaults swaps the model names when only the provider was changed.
func (c *AppConfig) applyProviderDefaults() {
	if c.LLM.Model == OpenAIModelName {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.Model = GeminiModelName
		case "anthropic":
			c.LLM.Model = AnthropicModelName
		}
	}
	if c.Embedding.Model == OpenAIEmbeddingModel && c.Embedding.Provider == "google" {
		c.Embedding.Model = GoogleEmbeddingModel
	}
}

// Validate reports every missing or inconsistent value at once.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "openai":
		errs = appendMissing(errs, c.API.OpenAIKey, "OPENAI_API_KEY")
	case "gemini":
		errs = appendMissing(errs, c.API.GoogleKey, "GOOGLE_API_KEY")
	case "anthropic":
		errs = appendMissing(errs, c.API.AnthropicKey, "ANTHROPIC_API_KEY")
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case "openai":
		errs = appendMissing(errs, c.API.OpenAIKey, "OPENAI_API_KEY")
	case "google":
		errs = appendMissing(errs, c.API.GoogleKey, "GOOGLE_API_KEY")
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.VectorStore.Backend {
	case "qdrant", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.VectorStore.Backend))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding dimension must be positive"))
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		errs = append(errs, errors.New("chunk overlap must be smaller than chunk size"))
	}
	// History and the chat stores disagree on what 0 means
	if c.Chat.HistoryLength <= 0 {
		errs = append(errs, fmt.Errorf("chat history length must be positive, got %d", c.Chat.HistoryLength))
	}
	return errors.Join(errs...)
}

// ValidateServer adds the checks that only matter when the HTTP API is exposed.
func (c *AppConfig) ValidateServer() error {
	err := c.Validate()
	if !c.API.NoAuthBypass && c.API.AuthToken == "" {
		err = errors.Join(err, errors.New("AUTH_TOKEN is required unless NO_AUTH_BYPASS is set"))
	}
	return err
}

func appendMissing(errs []error, value string, name string) []error {
	if strings.TrimSpace(value) == "" {
		return append(errs, fmt.Errorf("%s is required", name))
	}
	return errs
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
