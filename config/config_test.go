package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a configuration that passes validation
func validConfig() *Config {
	return &Config{
		Catalog:    CatalogConfig{Source: "file", Dir: "/app/uploads"},
		Cache:      CacheConfig{Type: "memory"},
		Embedding:  EmbeddingConfig{Provider: "ollama"},
		Generation: GenerationConfig{Provider: "ollama"},
		Retrieval:  RetrievalConfig{TopK: 4, ChunkSize: 500, ChunkOverlap: 50},
		Matching:   MatchingConfig{MinOverlap: 0.5},
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "5000" {
			t.Errorf("Server.Port = %s, want 5000", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Catalog.Source != "file" {
			t.Errorf("Catalog.Source = %s, want file", cfg.Catalog.Source)
		}
		if cfg.Catalog.Dir != "/app/uploads" {
			t.Errorf("Catalog.Dir = %s, want /app/uploads", cfg.Catalog.Dir)
		}
		if cfg.Catalog.ProductFile != "product.json" || cfg.Catalog.BrandFile != "brand.json" {
			t.Errorf("Catalog files = %s/%s, want product.json/brand.json", cfg.Catalog.ProductFile, cfg.Catalog.BrandFile)
		}
		if cfg.Cache.TTL != 168*time.Hour {
			t.Errorf("Cache.TTL = %v, want 168h", cfg.Cache.TTL)
		}
		if cfg.Generation.Model != "gemma3:1b" {
			t.Errorf("Generation.Model = %s, want gemma3:1b", cfg.Generation.Model)
		}
		if cfg.Generation.Timeout != 60*time.Second {
			t.Errorf("Generation.Timeout = %v, want 60s", cfg.Generation.Timeout)
		}
		if cfg.Retrieval.TopK != 4 {
			t.Errorf("Retrieval.TopK = %d, want 4", cfg.Retrieval.TopK)
		}
		if cfg.Retrieval.ChunkSize != 500 || cfg.Retrieval.ChunkOverlap != 50 {
			t.Errorf("Retrieval chunking = %d/%d, want 500/50", cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
		}
		if cfg.Matching.MinOverlap != 0.5 {
			t.Errorf("Matching.MinOverlap = %v, want 0.5", cfg.Matching.MinOverlap)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RAUMANIA_SERVER_PORT", "9090")
		t.Setenv("RAUMANIA_SERVER_ENVIRONMENT", "production")
		t.Setenv("RAUMANIA_CATALOG_DIR", "/data/exports")
		t.Setenv("RAUMANIA_CACHE_TYPE", "redis")
		t.Setenv("RAUMANIA_CACHE_REDIS_URL", "redis://localhost:6379")
		t.Setenv("RAUMANIA_CACHE_TTL", "24h")
		t.Setenv("RAUMANIA_GENERATION_PROVIDER", "gemini")
		t.Setenv("RAUMANIA_GENERATION_API_KEY", "gemini-key")
		t.Setenv("RAUMANIA_GENERATION_MAX_RETRIES", "5")
		t.Setenv("RAUMANIA_RATELIMIT_PER_IP", "200")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Catalog.Dir != "/data/exports" {
			t.Errorf("Catalog.Dir = %s, want /data/exports", cfg.Catalog.Dir)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Generation.Provider != "gemini" || cfg.Generation.APIKey != "gemini-key" {
			t.Errorf("Generation = %s/%s, want gemini/gemini-key", cfg.Generation.Provider, cfg.Generation.APIKey)
		}
		if cfg.Generation.MaxRetries != 5 {
			t.Errorf("Generation.MaxRetries = %d, want 5", cfg.Generation.MaxRetries)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads values from an explicit yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "raumania.yaml")
		content := `
catalog:
  dir: /srv/catalog
retrieval:
  top_k: 6
matching:
  enable_debug_logging: true
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}
		if cfg.Catalog.Dir != "/srv/catalog" {
			t.Errorf("Catalog.Dir = %s, want /srv/catalog", cfg.Catalog.Dir)
		}
		if cfg.Retrieval.TopK != 6 {
			t.Errorf("Retrieval.TopK = %d, want 6", cfg.Retrieval.TopK)
		}
		if !cfg.Matching.EnableDebugLogging {
			t.Error("Matching.EnableDebugLogging = false, want true")
		}
	})

	t.Run("fails when explicit file is missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RAUMANIA_CACHE_TYPE", "invalid")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when gemini key is missing", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RAUMANIA_EMBEDDING_PROVIDER", "gemini")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing Gemini key")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		t.Chdir(t.TempDir())

		if err := LoadEnvFile(); err != nil {
			t.Errorf("LoadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		t.Chdir(t.TempDir())

		envContent := `
# Comment line
RAUMANIA_TEST_VAR_1=value1
RAUMANIA_TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("RAUMANIA_TEST_VAR_1")
		os.Unsetenv("RAUMANIA_TEST_VAR_2")
		defer os.Unsetenv("RAUMANIA_TEST_VAR_1")
		defer os.Unsetenv("RAUMANIA_TEST_VAR_2")

		if err := LoadEnvFile(); err != nil {
			t.Fatalf("LoadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("RAUMANIA_TEST_VAR_1") != "value1" {
			t.Errorf("RAUMANIA_TEST_VAR_1 = %s, want value1", os.Getenv("RAUMANIA_TEST_VAR_1"))
		}
		if os.Getenv("RAUMANIA_TEST_VAR_2") != "value2" {
			t.Errorf("RAUMANIA_TEST_VAR_2 = %s, want value2", os.Getenv("RAUMANIA_TEST_VAR_2"))
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RAUMANIA_TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("RAUMANIA_TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := LoadEnvFile(); err != nil {
			t.Fatalf("LoadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("RAUMANIA_TEST_OVERRIDE") != "existing-value" {
			t.Errorf("RAUMANIA_TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("RAUMANIA_TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(validConfig()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown catalog source", func(c *Config) { c.Catalog.Source = "ftp" }},
		{"s3 source without bucket", func(c *Config) { c.Catalog.Source = "s3" }},
		{"postgres source without DSN", func(c *Config) { c.Catalog.Source = "postgres" }},
		{"invalid cache type", func(c *Config) { c.Cache.Type = "invalid-type" }},
		{"redis cache without URL", func(c *Config) { c.Cache.Type = "redis" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "openai" }},
		{"gemini generation without key", func(c *Config) { c.Generation.Provider = "gemini" }},
		{"overlap not smaller than chunk size", func(c *Config) { c.Retrieval.ChunkOverlap = 500 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"threshold of one", func(c *Config) { c.Matching.MinOverlap = 1 }},
	}

	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Errorf("validate() error = nil, want error for %s", tt.name)
			}
		})
	}

	t.Run("validates redis cache type with URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisURL = "redis://localhost:6379"
		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil for valid redis config", err)
		}
	})
}
