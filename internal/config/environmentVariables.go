package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internals in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 10
	BURST_RATE_LIMIT_PER_SECOND     = 20

	//auth
	NoAuthBypass = false
	AuthToken    = ""

	//llm
	LLMProvider                = "openai" // openai | gemini | anthropic
	OpenAIModelName            = "gpt-4o-mini"
	GeminiModelName            = "gemini-2.5-flash-lite-preview-09-2025"
	AnthropicModelName         = "claude-3-5-haiku-latest"
	ModelTemperature   float32 = 0.7
	ModelTopP          float32 = 1
	ModelMaxTokens             = 4096

	//embeddings
	EmbeddingProvider                   = "openai" // openai | google
	OpenAIEmbeddingModel                = "text-embedding-3-large"
	GoogleEmbeddingModel                = "gemini-embedding-001"
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingBatchSize                  = 100
	HugeDataSetThreshold                = 1000000 //above this chunk count we go through the google batch job api

	//vector store
	VectorBackend           = "qdrant" // qdrant | memory
	VectorPersistDirectory  = "vector_store"
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantPort              = 6333 //http
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false //set for https
	QdrantPoolSize          = 1     //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout  = 30 * time.Second

	//retrieval
	ExamsCollection         = "exams"
	SemanticCacheCollection = "semantic-cache"
	CacheSimilarityCutoff   = 0.97
	MetadataPromptLimit     = 4000 //characters of a chunk sent to the metadata extractor
	MetadataCacheTTL        = 30 * time.Minute
	MetadataWorkers         = 4
	ExamRetrieveK           = 5
	ExamRetrieverK          = 10
	QuestionGeneratorK      = 5
	AnswerK                 = 4
	FallbackTitleLength     = 60
	MaxFillConcurrency      = 0 //0 = one goroutine per planned exercise
	ResumeQuestionWindow    = 3

	//exam data pipeline
	ExamsPath           = "exams"
	ParsedDir           = "data/parsed"
	ChunkedDir          = "data/chunked"
	VersionedOutputDir  = "data/versioned"
	PipelineConcurrency = 10
	ChunkSize           = 1000
	ChunkOverlap        = 200
	ForceReload         = false
	PDFPageTimeout      = 10 * time.Second
	WatchDebounce       = 2 * time.Second
	MaxUploadSize       = 32 << 20 //32mb

	//chat
	HistoryLength = 10

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	QueryJobTimeout                 = 3 * time.Minute
	IngestJobTimeout                = 30 * time.Minute

	//serverTimeouts
	ReadTimeout            = 30 * time.Second //uploads
	WriteTimeout           = 2 * time.Minute  //clarify and suggest are answered synchronously
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second
	SyncRequestTimeout     = 90 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour

	//log file rotation, only used when a log file is configured
	LogMaxSizeMB  = 50
	LogMaxBackups = 3
	LogMaxAgeDays = 14
)
