package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug bool `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	MaxTokens           int    `envconfig:"MAX_TOKENS" default:"2000"`

	// Keyword fallback used when provider moderation is unavailable.
	ModerationKeywords []string `envconfig:"MODERATION_KEYWORDS"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK         int `envconfig:"TOP_K" default:"5"`

	AgentMaxIterations int           `envconfig:"AGENT_MAX_ITERATIONS" default:"5"`
	AgentTimeout       time.Duration `envconfig:"AGENT_TIMEOUT" default:"5m"`

	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"sqlite"`
	VectorDBPath  string `envconfig:"VECTOR_DB_PATH" default:"./vectors.db"`

	MilvusAddress  string `envconfig:"MILVUS_ADDRESS"`
	MilvusUsername string `envconfig:"MILVUS_USERNAME"`
	MilvusPassword string `envconfig:"MILVUS_PASSWORD"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"forge-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FORGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", cfg.ChunkOverlap)
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasMilvus() bool {
	return c.MilvusAddress != ""
}

// ModerationKeywordSet returns the configured moderation keywords lowercased
func (c *Config) ModerationKeywordSet() []string {
	out := make([]string, 0, len(c.ModerationKeywords))
	for _, kw := range c.ModerationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
