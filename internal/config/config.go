package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the embedding service.
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxRequestBytes int64         `env:"MAX_REQUEST_BYTES" envDefault:"1048576"` // 1MB
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Model
	EmbeddingProvider   string `env:"EMBEDDING_PROVIDER" envDefault:"local"` // "local", "openai" or "ollama"
	EmbeddingModel      string `env:"EMBEDDING_MODEL"` // empty picks the provider default
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"0"` // 0 lets the provider decide
	MaxTokens           int    `env:"MAX_TOKENS" envDefault:"256"`
	Workers             int    `env:"WORKERS" envDefault:"0"` // 0 means runtime.NumCPU()
	WarmupAttempts      int    `env:"WARMUP_ATTEMPTS" envDefault:"3"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OllamaURL     string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`

	// Cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
