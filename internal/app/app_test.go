package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raumania/assistant/config"
	"github.com/raumania/assistant/internal/domain"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Environment: "test"},
		Catalog: config.CatalogConfig{Source: "file", Dir: dir, ProductFile: "product.json", BrandFile: "brand.json", Watch: true},
		Cache:   config.CacheConfig{Type: "memory", TTL: time.Hour},
		Embedding: config.EmbeddingConfig{
			Provider: "ollama", Model: "all-minilm", BaseURL: "http://127.0.0.1:1", BatchSize: 8, Workers: 2,
		},
		Generation: config.GenerationConfig{
			Provider: "ollama", Model: "gemma3:1b", BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second, MaxRetries: 1, Temperature: 0.2,
		},
		Retrieval: config.RetrievalConfig{TopK: 4, ChunkSize: 500, ChunkOverlap: 50},
		Matching:  config.MatchingConfig{MinOverlap: 0.5},
	}
}

func writeExports(t *testing.T, dir string) {
	t.Helper()
	products := `{"totalElements":1,"content":[{"id":"p1","name":"Midnight Rose","price":45,"brandName":"Lumen","variantName":["50ml"]}]}`
	brands := `{"totalElements":1,"content":[{"id":"b1","name":"Lumen","productNames":["Midnight Rose"]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "product.json"), []byte(products), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brand.json"), []byte(brands), 0o644))
}

func TestNew_FileSource(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir)

	a, err := New(context.Background(), testConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Assistant)
	require.NotNil(t, a.Catalog)
	assert.NotNil(t, a.watcher)

	// Deterministic answers need no model service
	reply, err := a.Assistant.Ask(context.Background(), "How much is Midnight Rose?")
	require.NoError(t, err)
	assert.Equal(t, "The price of Midnight Rose is $45.", reply.Text)
	assert.Equal(t, domain.RouteDeterministic, reply.Route)
}

func TestNew_WatcherPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir)

	a, err := New(context.Background(), testConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Run(ctx)

	_, err = a.Catalog.Snapshot(ctx)
	require.NoError(t, err)

	updated := `{"totalElements":1,"content":[{"id":"p1","name":"Midnight Rose","price":50,"brandName":"Lumen","variantName":["50ml"]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "product.json"), []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		reply, err := a.Assistant.Ask(ctx, "How much is Midnight Rose?")
		return err == nil && reply.Text == "The price of Midnight Rose is $50."
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNew_MissingDirDisablesWatching(t *testing.T) {
	a, err := New(context.Background(), testConfig(filepath.Join(t.TempDir(), "absent")), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.watcher)

	_, err = a.Assistant.Ask(context.Background(), "How much is Midnight Rose?")
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestNew_GeminiProviders(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Catalog.Watch = false
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.APIKey = "test-key"
	cfg.Generation.Provider = "gemini"
	cfg.Generation.APIKey = "test-key"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.geminis, 1, "one client per API key")
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Cache.Type = "redis"
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := New(ctx, cfg, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t.TempDir()), zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
