// Package config loads service configuration from environment variables
// with an optional YAML overlay. Precedence: environment > file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names the retrieval registry accepts.
const (
	StrategyNaive  = "naive"
	StrategyBM25   = "bm25"
	StrategyRerank = "cohere_rerank"
)

type Config struct {
	// Server
	Port           string
	AuthToken      string
	MaxUploadBytes int64

	// OpenAI-compatible generation and embeddings
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIRPS         float64
	ClarityModel      string
	RigorModel        string
	OrchestratorModel string
	EmbeddingModel    string
	EmbeddingDims     int
	Temperature       float64

	// Qdrant
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Per-agent retrieval
	ClarityRetriever string
	ClarityK         int
	ClarityInitialK  int
	RigorRetriever   string
	RigorK           int
	RigorInitialK    int

	// Cohere rerank
	CohereAPIKey      string
	CohereRerankModel string

	// Tavily web search. Empty API key disables the rigor search tool.
	TavilyAPIKey      string
	TavilySearchDepth string
	TavilyMaxResults  int

	// Review
	MaxToolCalls     int
	MaxSectionTokens int

	// Ingest worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentEmbed int
	EmbedBatchSize     int
	ChunkSize          int
	ChunkOverlap       int
	JobTTL             time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel string
	LogFile  string
}

func defaults() Config {
	return Config{
		Port:           "8000",
		MaxUploadBytes: 52428800, // 50MB

		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIRPS:         5,
		ClarityModel:      "gpt-4o-mini",
		RigorModel:        "gpt-4o",
		OrchestratorModel: "gpt-4o",
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingDims:     1536,
		Temperature:       0.1,

		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "research_guidelines",

		ClarityRetriever: StrategyNaive,
		ClarityK:         6,
		ClarityInitialK:  20,
		RigorRetriever:   StrategyNaive,
		RigorK:           6,
		RigorInitialK:    20,

		CohereRerankModel: "rerank-v3.5",

		TavilySearchDepth: "basic",
		TavilyMaxResults:  5,

		MaxToolCalls:     2,
		MaxSectionTokens: 2000,

		WorkerCount:        4,
		MaxQueueSize:       100,
		MaxConcurrentEmbed: 4,
		EmbedBatchSize:     32,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		JobTTL:             time.Hour,

		PDFFallbackPdftotext: true,

		LogLevel: "info",
	}
}

// Load builds the configuration. When path is non-empty it names a YAML
// overlay file applied between the defaults and the environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := applyFile(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 4
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.AuthToken = envOr("AUTH_TOKEN", cfg.AuthToken)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIRPS = envFloat("OPENAI_RPS", cfg.OpenAIRPS)
	cfg.ClarityModel = envOr("CLARITY_AGENT_MODEL", cfg.ClarityModel)
	cfg.RigorModel = envOr("RIGOR_AGENT_MODEL", cfg.RigorModel)
	cfg.OrchestratorModel = envOr("ORCHESTRATOR_MODEL", cfg.OrchestratorModel)
	cfg.EmbeddingModel = envOr("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDims = envInt("EMBEDDING_DIMS", cfg.EmbeddingDims)
	cfg.Temperature = envFloat("LLM_TEMPERATURE", cfg.Temperature)

	cfg.QdrantURL = envOr("QDRANT_URL", cfg.QdrantURL)
	cfg.QdrantAPIKey = envOr("QDRANT_API_KEY", cfg.QdrantAPIKey)
	cfg.QdrantCollection = envOr("QDRANT_COLLECTION_NAME", cfg.QdrantCollection)

	cfg.ClarityRetriever = envOr("CLARITY_AGENT_RETRIEVER_TYPE", cfg.ClarityRetriever)
	cfg.ClarityK = envInt("CLARITY_AGENT_RETRIEVER_K", cfg.ClarityK)
	cfg.ClarityInitialK = envInt("CLARITY_AGENT_RETRIEVER_INITIAL_K", cfg.ClarityInitialK)
	cfg.RigorRetriever = envOr("RIGOR_AGENT_RETRIEVER_TYPE", cfg.RigorRetriever)
	cfg.RigorK = envInt("RIGOR_AGENT_RETRIEVER_K", cfg.RigorK)
	cfg.RigorInitialK = envInt("RIGOR_AGENT_RETRIEVER_INITIAL_K", cfg.RigorInitialK)

	cfg.CohereAPIKey = envOr("COHERE_API_KEY", cfg.CohereAPIKey)
	cfg.CohereRerankModel = envOr("COHERE_RERANK_MODEL", cfg.CohereRerankModel)

	cfg.TavilyAPIKey = envOr("TAVILY_API_KEY", cfg.TavilyAPIKey)
	cfg.TavilySearchDepth = envOr("TAVILY_SEARCH_DEPTH", cfg.TavilySearchDepth)
	cfg.TavilyMaxResults = envInt("TAVILY_MAX_RESULTS", cfg.TavilyMaxResults)

	cfg.MaxToolCalls = envInt("MAX_TOOL_CALLS", cfg.MaxToolCalls)
	cfg.MaxSectionTokens = envInt("MAX_SECTION_TOKENS", cfg.MaxSectionTokens)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentEmbed = envInt("MAX_CONCURRENT_EMBED", cfg.MaxConcurrentEmbed)
	cfg.EmbedBatchSize = envInt("EMBED_BATCH_SIZE", cfg.EmbedBatchSize)
	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envOr("LOG_FILE", cfg.LogFile)
}

// fileValues mirrors the YAML overlay file. Zero values leave the current
// setting untouched.
type fileValues struct {
	Port           string `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	OpenAIAPIKey      string  `yaml:"openai_api_key"`
	OpenAIBaseURL     string  `yaml:"openai_base_url"`
	OpenAIRPS         float64 `yaml:"openai_rps"`
	ClarityModel      string  `yaml:"clarity_agent_model"`
	RigorModel        string  `yaml:"rigor_agent_model"`
	OrchestratorModel string  `yaml:"orchestrator_model"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	EmbeddingDims     int     `yaml:"embedding_dims"`
	Temperature       float64 `yaml:"llm_temperature"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection_name"`

	ClarityRetriever string `yaml:"clarity_agent_retriever_type"`
	ClarityK         int    `yaml:"clarity_agent_retriever_k"`
	ClarityInitialK  int    `yaml:"clarity_agent_retriever_initial_k"`
	RigorRetriever   string `yaml:"rigor_agent_retriever_type"`
	RigorK           int    `yaml:"rigor_agent_retriever_k"`
	RigorInitialK    int    `yaml:"rigor_agent_retriever_initial_k"`

	CohereAPIKey      string `yaml:"cohere_api_key"`
	CohereRerankModel string `yaml:"cohere_rerank_model"`

	TavilyAPIKey      string `yaml:"tavily_api_key"`
	TavilySearchDepth string `yaml:"tavily_search_depth"`
	TavilyMaxResults  int    `yaml:"tavily_max_results"`

	MaxToolCalls     int `yaml:"max_tool_calls"`
	MaxSectionTokens int `yaml:"max_section_tokens"`

	WorkerCount        int    `yaml:"worker_count"`
	MaxQueueSize       int    `yaml:"max_queue_size"`
	MaxConcurrentEmbed int    `yaml:"max_concurrent_embed"`
	EmbedBatchSize     int    `yaml:"embed_batch_size"`
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
	JobTTL             string `yaml:"job_ttl"`

	PDFFallbackPdftotext *bool `yaml:"pdf_fallback_pdftotext"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func applyFile(cfg *Config, data []byte) error {
	var f fileValues
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}

	setStr(&cfg.Port, f.Port)
	setStr(&cfg.AuthToken, f.AuthToken)
	if f.MaxUploadBytes != 0 {
		cfg.MaxUploadBytes = f.MaxUploadBytes
	}

	setStr(&cfg.OpenAIAPIKey, f.OpenAIAPIKey)
	setStr(&cfg.OpenAIBaseURL, f.OpenAIBaseURL)
	setFloat(&cfg.OpenAIRPS, f.OpenAIRPS)
	setStr(&cfg.ClarityModel, f.ClarityModel)
	setStr(&cfg.RigorModel, f.RigorModel)
	setStr(&cfg.OrchestratorModel, f.OrchestratorModel)
	setStr(&cfg.EmbeddingModel, f.EmbeddingModel)
	setInt(&cfg.EmbeddingDims, f.EmbeddingDims)
	setFloat(&cfg.Temperature, f.Temperature)

	setStr(&cfg.QdrantURL, f.QdrantURL)
	setStr(&cfg.QdrantAPIKey, f.QdrantAPIKey)
	setStr(&cfg.QdrantCollection, f.QdrantCollection)

	setStr(&cfg.ClarityRetriever, f.ClarityRetriever)
	setInt(&cfg.ClarityK, f.ClarityK)
	setInt(&cfg.ClarityInitialK, f.ClarityInitialK)
	setStr(&cfg.RigorRetriever, f.RigorRetriever)
	setInt(&cfg.RigorK, f.RigorK)
	setInt(&cfg.RigorInitialK, f.RigorInitialK)

	setStr(&cfg.CohereAPIKey, f.CohereAPIKey)
	setStr(&cfg.CohereRerankModel, f.CohereRerankModel)

	setStr(&cfg.TavilyAPIKey, f.TavilyAPIKey)
	setStr(&cfg.TavilySearchDepth, f.TavilySearchDepth)
	setInt(&cfg.TavilyMaxResults, f.TavilyMaxResults)

	setInt(&cfg.MaxToolCalls, f.MaxToolCalls)
	setInt(&cfg.MaxSectionTokens, f.MaxSectionTokens)

	setInt(&cfg.WorkerCount, f.WorkerCount)
	setInt(&cfg.MaxQueueSize, f.MaxQueueSize)
	setInt(&cfg.MaxConcurrentEmbed, f.MaxConcurrentEmbed)
	setInt(&cfg.EmbedBatchSize, f.EmbedBatchSize)
	setInt(&cfg.ChunkSize, f.ChunkSize)
	setInt(&cfg.ChunkOverlap, f.ChunkOverlap)
	if f.JobTTL != "" {
		d, err := time.ParseDuration(f.JobTTL)
		if err != nil {
			return fmt.Errorf("job_ttl: %w", err)
		}
		cfg.JobTTL = d
	}

	if f.PDFFallbackPdftotext != nil {
		cfg.PDFFallbackPdftotext = *f.PDFFallbackPdftotext
	}

	setStr(&cfg.LogLevel, f.LogLevel)
	setStr(&cfg.LogFile, f.LogFile)

	return nil
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	for _, s := range []string{c.ClarityRetriever, c.RigorRetriever} {
		switch s {
		case StrategyNaive, StrategyBM25, StrategyRerank:
		default:
			return fmt.Errorf("unknown retriever type %q (want %s, %s, or %s)",
				s, StrategyNaive, StrategyBM25, StrategyRerank)
		}
	}
	if c.UsesRerank() && c.CohereAPIKey == "" {
		return fmt.Errorf("COHERE_API_KEY is required when a %s retriever is configured", StrategyRerank)
	}
	return nil
}

// UsesRerank reports whether any agent is configured with the rerank strategy.
func (c Config) UsesRerank() bool {
	return c.ClarityRetriever == StrategyRerank || c.RigorRetriever == StrategyRerank
}

// SearchEnabled reports whether the rigor agent's web search tool has a key.
func (c Config) SearchEnabled() bool {
	return c.TavilyAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
