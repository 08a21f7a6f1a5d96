// Package app wires configuration into the assistant's components.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/config"
	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/infrastructure/cache"
	"github.com/raumania/assistant/internal/infrastructure/catalogsource"
	"github.com/raumania/assistant/internal/infrastructure/gemini"
	"github.com/raumania/assistant/internal/infrastructure/localembed"
	"github.com/raumania/assistant/internal/infrastructure/ollama"
	"github.com/raumania/assistant/internal/usecase"
)

// App holds the wired service graph shared by the server and the CLI
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Catalog   *usecase.CatalogStore
	Retrieval *usecase.RetrievalService
	Assistant *usecase.AssistantService

	watcher *catalogsource.Watcher
	geminis map[string]*gemini.Client
	closers []func() error
}

// New builds every component named by cfg. Nothing talks to a model service
// until the first question; catalog sources that need a connection are
// connected here.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		geminis: make(map[string]*gemini.Client),
	}

	source, err := a.catalogSource(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cacheRepo, err := a.cache(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	embedder, err := a.embedder(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	generator, err := a.generator(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Catalog = usecase.NewCatalogStore(source, logger)

	a.Retrieval = usecase.NewRetrievalService(embedder, generator, cacheRepo, usecase.RetrievalConfig{
		TopK:           cfg.Retrieval.TopK,
		ChunkSize:      cfg.Retrieval.ChunkSize,
		ChunkOverlap:   cfg.Retrieval.ChunkOverlap,
		BatchSize:      cfg.Embedding.BatchSize,
		Workers:        cfg.Embedding.Workers,
		EmbeddingModel: cfg.Embedding.Provider + ":" + cfg.Embedding.Model,
		CacheTTL:       cfg.Cache.TTL,
		MaxRetries:     cfg.Generation.MaxRetries,
		AttemptTimeout: cfg.Generation.Timeout,
		Logger:         logger,
	})

	a.Assistant = usecase.NewAssistantService(a.Catalog, a.Retrieval, usecase.AssistantServiceConfig{
		MinOverlap:         cfg.Matching.MinOverlap,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		Logger:             logger,
	})

	if cfg.Catalog.Source == "file" && cfg.Catalog.Watch {
		a.watch(source.(*catalogsource.FileSource))
	}

	return a, nil
}

// Run starts background work (the catalog watcher) until ctx is done
func (a *App) Run(ctx context.Context) {
	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}
}

// Close releases connections in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) catalogSource(ctx context.Context) (domain.CatalogSource, error) {
	c := a.Config.Catalog
	switch c.Source {
	case "s3":
		src, err := catalogsource.NewS3Source(ctx, catalogsource.S3Config{
			Bucket:      c.S3Bucket,
			Region:      c.S3Region,
			Prefix:      c.S3Prefix,
			Endpoint:    c.S3Endpoint,
			AccessKey:   c.S3AccessKey,
			SecretKey:   c.S3SecretKey,
			ProductFile: c.ProductFile,
			BrandFile:   c.BrandFile,
		})
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("bucket", c.S3Bucket).Str("prefix", c.S3Prefix).Msg("catalog source: s3")
		return src, nil

	case "postgres":
		src, err := catalogsource.NewPostgresSource(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { src.Close(); return nil })
		a.Logger.Info().Msg("catalog source: postgres")
		return src, nil

	case "file":
		a.Logger.Info().Str("dir", c.Dir).Msg("catalog source: file")
		return catalogsource.NewFileSource(c.Dir, c.ProductFile, c.BrandFile), nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", c.Source)
}

// cache builds the embedding cache named by cache.type
func (a *App) cache(ctx context.Context) (domain.CacheRepository, error) {
	switch a.Config.Cache.Type {
	case "redis":
		r, err := cache.NewRedisCache(ctx, a.Config.Cache.RedisURL, "")
		if err != nil {
			return nil, err
		}
		a.onClose(r.Close)
		a.Logger.Info().Dur("ttl", a.Config.Cache.TTL).Msg("embedding cache: redis")
		return r, nil
	default:
		m := cache.NewMemoryCache()
		a.onClose(m.Close)
		a.Logger.Info().Dur("ttl", a.Config.Cache.TTL).Msg("embedding cache: memory")
		return m, nil
	}
}

func (a *App) embedder(ctx context.Context) (domain.Embedder, error) {
	e := a.Config.Embedding
	switch e.Provider {
	case "gemini":
		client, err := a.gemini(ctx, e.APIKey)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("model", e.Model).Msg("embeddings: gemini")
		return client.Embedder(e.Model), nil

	case "local":
		le, err := localembed.New(e.Model, e.ModelDir, a.Logger)
		if err != nil {
			return nil, err
		}
		a.onClose(le.Close)
		a.Logger.Info().Str("model", e.Model).Msg("embeddings: local")
		return le, nil

	default:
		client := ollama.NewClient(e.BaseURL, e.Model, a.Config.RateLimit.Generation, a.Logger)
		client.SetDebug(a.Config.Server.Environment == "development")
		a.Logger.Info().Str("model", e.Model).Str("base_url", e.BaseURL).Msg("embeddings: ollama")
		return client, nil
	}
}

func (a *App) generator(ctx context.Context) (domain.Generator, error) {
	g := a.Config.Generation
	switch g.Provider {
	case "gemini":
		client, err := a.gemini(ctx, g.APIKey)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("model", g.Model).Msg("generation: gemini")
		return client.Generator(g.Model, g.Temperature), nil

	default:
		client := ollama.NewClient(g.BaseURL, g.Model, a.Config.RateLimit.Generation, a.Logger)
		client.SetTemperature(g.Temperature)
		client.SetDebug(a.Config.Server.Environment == "development")
		a.Logger.Info().Str("model", g.Model).Str("base_url", g.BaseURL).Msg("generation: ollama")
		return client, nil
	}
}

// gemini shares one client per API key
func (a *App) gemini(ctx context.Context, apiKey string) (*gemini.Client, error) {
	if c, ok := a.geminis[apiKey]; ok {
		return c, nil
	}
	c, err := gemini.NewClient(ctx, apiKey, a.Logger)
	if err != nil {
		return nil, err
	}
	a.geminis[apiKey] = c
	a.onClose(c.Close)
	return c, nil
}

// watch invalidates the catalog when the export files change. A directory that
// cannot be watched only disables watching.
func (a *App) watch(src *catalogsource.FileSource) {
	productPath, brandPath := src.Paths()
	w, err := catalogsource.NewWatcher(src.Dir(), []string{productPath, brandPath}, a.Catalog.Invalidate, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Str("dir", src.Dir()).Msg("catalog watching disabled")
		return
	}
	a.watcher = w
	a.onClose(w.Close)
}
