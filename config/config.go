package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
// Values are resolved as defaults, then the optional YAML file, then environment variables.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Weather    WeatherConfig    `yaml:"weather"`
	RAG        RAGConfig        `yaml:"rag"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
}

// LLMConfig selects the chat model provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // gemini, openai or qwen
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"` // empty picks the provider default
	Timeout  time.Duration `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // openai (any compatible endpoint) or hash (offline)
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	Backend    string        `yaml:"backend"` // qdrant, redis or memory
	Collection string        `yaml:"collection"`
	QdrantURL  string        `yaml:"qdrant_url"`
	QdrantKey  string        `yaml:"qdrant_api_key"`
	RedisAddr  string        `yaml:"redis_addr"`
	RedisPass  string        `yaml:"redis_password"`
	RedisDB    int           `yaml:"redis_db"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WeatherConfig configures the weather provider.
type WeatherConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Units     string        `yaml:"units"`
	Timeout   time.Duration `yaml:"timeout"`
	Summarize bool          `yaml:"summarize"`
}

// RAGConfig configures chunking and retrieval.
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// ClassifierConfig selects the intent classifier mode.
type ClassifierConfig struct {
	Mode string `yaml:"mode"` // keyword or llm
}

// TracingConfig configures the optional cozeloop trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	APIToken    string `yaml:"api_token"`
	WorkspaceID string `yaml:"workspace_id"`
	Project     string `yaml:"project"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Timeout:  60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
			Timeout:   30 * time.Second,
		},
		Vector: VectorConfig{
			Backend:    "qdrant",
			Collection: "ai_pipeline_collection",
			QdrantURL:  "http://localhost:6333",
			RedisAddr:  "localhost:6379",
			Timeout:    30 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
			Units:   "metric",
			Timeout: 10 * time.Second,
		},
		RAG: RAGConfig{
			ChunkSize:    400,
			ChunkOverlap: 50,
			TopK:         4,
		},
		Classifier: ClassifierConfig{Mode: "keyword"},
		Tracing:    TracingConfig{Project: "routeqa"},
		Log:        LogConfig{Level: "info", Format: "console"},
		Server:     ServerConfig{Addr: ":8080", Timeout: 120 * time.Second},
	}
}

// Load builds a Config from defaults, the YAML file at path (if path is non-empty)
// and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = strings.ToLower(getEnvString("LLM_PROVIDER", c.LLM.Provider))
	switch c.LLM.Provider {
	case "openai":
		c.LLM.APIKey = getEnvString("OPENAI_API_KEY", c.LLM.APIKey)
		c.LLM.BaseURL = getEnvString("OPENAI_BASE_URL", c.LLM.BaseURL)
		c.LLM.Model = getEnvString("OPENAI_MODEL", c.LLM.Model)
	case "qwen":
		c.LLM.APIKey = getEnvString("QWEN_API_KEY", c.LLM.APIKey)
		c.LLM.BaseURL = getEnvString("QWEN_BASE_URL", c.LLM.BaseURL)
		c.LLM.Model = getEnvString("QWEN_MODEL", c.LLM.Model)
	default:
		c.LLM.APIKey = getEnvString("GEMINI_API_KEY", c.LLM.APIKey)
		c.LLM.Model = getEnvString("GEMINI_MODEL", c.LLM.Model)
	}
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Embedding.Provider = strings.ToLower(getEnvString("EMBEDDING_PROVIDER", c.Embedding.Provider))
	c.Embedding.APIKey = getEnvString("EMBEDDING_API_KEY", c.Embedding.APIKey)
	c.Embedding.BaseURL = getEnvString("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnvString("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dimension = getEnvInt("VECTOR_DIM", c.Embedding.Dimension)
	c.Embedding.Timeout = getEnvDuration("EMBEDDING_TIMEOUT", c.Embedding.Timeout)

	c.Vector.Backend = strings.ToLower(getEnvString("VECTOR_BACKEND", c.Vector.Backend))
	c.Vector.Collection = getEnvString("QDRANT_COLLECTION", c.Vector.Collection)
	c.Vector.QdrantURL = getEnvString("QDRANT_URL", c.Vector.QdrantURL)
	c.Vector.QdrantKey = getEnvString("QDRANT_API_KEY", c.Vector.QdrantKey)
	c.Vector.RedisAddr = getEnvString("REDIS_ADDR", c.Vector.RedisAddr)
	c.Vector.RedisPass = getEnvString("REDIS_PASSWORD", c.Vector.RedisPass)
	c.Vector.RedisDB = getEnvInt("REDIS_DB", c.Vector.RedisDB)

	c.Weather.APIKey = getEnvString("WEATHER_API_KEY", c.Weather.APIKey)
	c.Weather.BaseURL = getEnvString("WEATHER_BASE_URL", c.Weather.BaseURL)
	c.Weather.Summarize = getEnvBool("WEATHER_SUMMARY", c.Weather.Summarize)

	c.RAG.ChunkSize = getEnvInt("CHUNK_SIZE", c.RAG.ChunkSize)
	c.RAG.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.RAG.ChunkOverlap)
	c.RAG.TopK = getEnvInt("RAG_TOP_K", c.RAG.TopK)

	c.Classifier.Mode = strings.ToLower(getEnvString("CLASSIFIER_MODE", c.Classifier.Mode))

	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.APIToken = getEnvString("COZELOOP_API_TOKEN", c.Tracing.APIToken)
	c.Tracing.WorkspaceID = getEnvString("COZELOOP_WORKSPACE_ID", c.Tracing.WorkspaceID)
	c.Tracing.Project = getEnvString("TRACING_PROJECT", c.Tracing.Project)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("LOG_FORMAT", c.Log.Format)

	c.Server.Addr = getEnvString("HTTP_ADDR", c.Server.Addr)
}

// Validate reports configuration errors that would make every request fail.
// Missing credentials are reported by the capability that needs them, so a
// keyword-routed weather session runs without an LLM key.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "gemini", "openai", "qwen":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}

	switch c.Vector.Backend {
	case "qdrant", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Vector.Backend))
	}

	switch c.Classifier.Mode {
	case "keyword", "llm":
	default:
		errs = append(errs, fmt.Errorf("unknown classifier mode %q", c.Classifier.Mode))
	}

	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.RAG.TopK))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension))
	}

	return errors.Join(errs...)
}

// getEnvString reads a string from environment variable
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from environment variable
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return defaultVal
}
