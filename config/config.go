package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Cache      CacheConfig
	Embedding  EmbeddingConfig
	Generation GenerationConfig
	Retrieval  RetrievalConfig
	Matching   MatchingConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig selects and configures the catalog dataset source
type CatalogConfig struct {
	Source      string `mapstructure:"source"` // "file", "s3" or "postgres"
	Dir         string `mapstructure:"dir"`
	ProductFile string `mapstructure:"product_file"`
	BrandFile   string `mapstructure:"brand_file"`
	Watch       bool   `mapstructure:"watch"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint"` // optional, for S3-compatible stores
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// CacheConfig holds embedding cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// EmbeddingConfig selects the embedding backend
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "ollama", "gemini" or "local"
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	ModelDir  string `mapstructure:"model_dir"` // local provider model cache
	BatchSize int    `mapstructure:"batch_size"`
	Workers   int    `mapstructure:"workers"`
}

// GenerationConfig selects the generation backend
type GenerationConfig struct {
	Provider    string        `mapstructure:"provider"` // "ollama" or "gemini"
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Temperature float64       `mapstructure:"temperature"`
}

// RetrievalConfig holds chunking and search parameters
type RetrievalConfig struct {
	TopK         int `mapstructure:"top_k"`
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// MatchingConfig holds entity matcher parameters
type MatchingConfig struct {
	MinOverlap         float64 `mapstructure:"min_overlap"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP      int `mapstructure:"per_ip"`     // requests per minute per client IP
	Generation int `mapstructure:"generation"` // model calls per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from an explicit file path when one is given,
// otherwise from the default search paths
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/raumania/")
	}

	// Environment variable settings
	v.SetEnvPrefix("RAUMANIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalog defaults
	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.dir", "/app/uploads")
	v.SetDefault("catalog.product_file", "product.json")
	v.SetDefault("catalog.brand_file", "brand.json")
	v.SetDefault("catalog.watch", true)
	v.SetDefault("catalog.s3_bucket", "")
	v.SetDefault("catalog.s3_region", "us-east-1")
	v.SetDefault("catalog.s3_prefix", "")
	v.SetDefault("catalog.s3_endpoint", "")
	v.SetDefault("catalog.s3_access_key", "")
	v.SetDefault("catalog.s3_secret_key", "")
	v.SetDefault("catalog.postgres_dsn", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h")

	// Embedding defaults (all-minilm is all-MiniLM-L6-v2 on Ollama)
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.base_url", "http://ollama:11434")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model_dir", "./models")
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.workers", 4)

	// Generation defaults
	v.SetDefault("generation.provider", "ollama")
	v.SetDefault("generation.model", "gemma3:1b")
	v.SetDefault("generation.base_url", "http://ollama:11434")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.temperature", 0.2)

	// Retrieval defaults
	v.SetDefault("retrieval.top_k", 4)
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.chunk_overlap", 50)

	// Matching defaults
	v.SetDefault("matching.min_overlap", 0.5)
	v.SetDefault("matching.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.generation", 120)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Source {
	case "file":
		if config.Catalog.Dir == "" {
			return fmt.Errorf("catalog dir is required when catalog source is 'file'")
		}
	case "s3":
		if config.Catalog.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required when catalog source is 's3' (set RAUMANIA_CATALOG_S3_BUCKET)")
		}
	case "postgres":
		if config.Catalog.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required when catalog source is 'postgres' (set RAUMANIA_CATALOG_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("catalog source must be 'file', 's3' or 'postgres', got: %s", config.Catalog.Source)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.Embedding.Provider {
	case "ollama", "local":
	case "gemini":
		if config.Embedding.APIKey == "" {
			return fmt.Errorf("Gemini API key is required for gemini embeddings (set RAUMANIA_EMBEDDING_API_KEY)")
		}
	default:
		return fmt.Errorf("embedding provider must be 'ollama', 'gemini' or 'local', got: %s", config.Embedding.Provider)
	}

	switch config.Generation.Provider {
	case "ollama":
	case "gemini":
		if config.Generation.APIKey == "" {
			return fmt.Errorf("Gemini API key is required for gemini generation (set RAUMANIA_GENERATION_API_KEY)")
		}
	default:
		return fmt.Errorf("generation provider must be 'ollama' or 'gemini', got: %s", config.Generation.Provider)
	}

	if config.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval chunk size must be positive, got: %d", config.Retrieval.ChunkSize)
	}
	if config.Retrieval.ChunkOverlap < 0 || config.Retrieval.ChunkOverlap >= config.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval chunk overlap must be in [0, chunk size), got: %d", config.Retrieval.ChunkOverlap)
	}
	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got: %d", config.Retrieval.TopK)
	}

	if config.Matching.MinOverlap <= 0 || config.Matching.MinOverlap >= 1 {
		return fmt.Errorf("matching min_overlap must be in (0, 1), got: %v", config.Matching.MinOverlap)
	}

	return nil
}
