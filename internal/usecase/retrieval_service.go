package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

const assistantPrompt = `
You are Raumania's helpful and friendly virtual assistant.
Raumania is an elegant fragrance and perfume store that sells premium scents.

Here's what you know:
- We currently offer {{.TotalProducts}} products.
- We currently carry {{.TotalBrands}} unique fragrance brands.

Use the following context to answer customer questions about our products and brands.

Always:
- Use the $ symbol when mentioning prices.
- Be precise and accurate with numbers.
- Do not ask follow-up questions.
- If you're unsure, politely say you don't have that information.

Context:
{{.Context}}

Question:
{{.Question}}

Helpful Answer:
`

var promptTemplate = template.Must(template.New("assistant").Parse(assistantPrompt))

// PromptData fills the assistant prompt
type PromptData struct {
	TotalProducts int
	TotalBrands   int
	Context       string
	Question      string
}

// RenderPrompt renders the assistant prompt
func RenderPrompt(data PromptData) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RetrievalConfig holds configuration for the retrieval fallback
type RetrievalConfig struct {
	TopK           int
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	Workers        int
	EmbeddingModel string // namespaces cached vectors
	CacheTTL       time.Duration
	MaxRetries     int // retries after the first generation attempt
	AttemptTimeout time.Duration
	Logger         zerolog.Logger
}

// RetrievalService answers generic questions by retrieving catalog chunks and
// asking the generation model
type RetrievalService struct {
	embedder  domain.Embedder
	generator domain.Generator
	cache     domain.CacheRepository
	splitter  *TextSplitter
	topK      int
	batchSize int
	workers   int
	model     string
	cacheTTL  time.Duration
	retry     retryPolicy
	logger    zerolog.Logger
}

// NewRetrievalService creates a retrieval service. cache may be nil.
func NewRetrievalService(
	embedder domain.Embedder,
	generator domain.Generator,
	cache domain.CacheRepository,
	config RetrievalConfig,
) *RetrievalService {
	topK := config.TopK
	if topK <= 0 {
		topK = 4
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 168 * time.Hour // 7 days
	}

	return &RetrievalService{
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		splitter:  NewTextSplitter(config.ChunkSize, config.ChunkOverlap),
		topK:      topK,
		batchSize: batchSize,
		workers:   workers,
		model:     config.EmbeddingModel,
		cacheTTL:  cacheTTL,
		retry: retryPolicy{
			maxAttempts:    max(config.MaxRetries, 0) + 1,
			attemptTimeout: config.AttemptTimeout,
			backoff:        exponentialBackoff,
		},
		logger: observability.Component(config.Logger, "retrieval"),
	}
}

// AnswerGeneric retrieves the chunks closest to the question and returns the
// generator's answer verbatim. Every failure wraps domain.ErrGenerationFailed.
func (s *RetrievalService) AnswerGeneric(ctx context.Context, question string, snap *Snapshot) (string, error) {
	idx, err := snap.Index(ctx, s.BuildIndex)
	if err != nil {
		return "", generationFailed(err)
	}

	var queryVectors [][]float32
	err = s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		queryVectors, err = s.embedder.Embed(ctx, []string{question})
		return err
	})
	if err != nil {
		return "", generationFailed(fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err))
	}
	if len(queryVectors) != 1 {
		return "", generationFailed(fmt.Errorf("%w: got %d vectors for question", domain.ErrEmbeddingFailed, len(queryVectors)))
	}

	hits, err := idx.Search(queryVectors[0], s.topK)
	if err != nil {
		return "", generationFailed(err)
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	s.logger.Debug().Int("hits", len(hits)).Strs("chunks", texts).Msg("retrieved context")

	prompt, err := RenderPrompt(PromptData{
		TotalProducts: snap.Catalog.TotalProducts,
		TotalBrands:   snap.Catalog.TotalBrands,
		Context:       strings.Join(texts, "\n\n"),
		Question:      question,
	})
	if err != nil {
		return "", generationFailed(err)
	}

	var answer string
	start := time.Now()
	err = s.retry.do(ctx, func(ctx context.Context) error {
		text, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			s.logger.Warn().Err(err).Msg("generation attempt failed")
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", generationFailed(err)
	}

	s.logger.Info().Dur("took", time.Since(start)).Int("answer_len", len(answer)).Msg("generated answer")
	return answer, nil
}

// BuildIndex projects, splits and embeds the whole catalog
func (s *RetrievalService) BuildIndex(ctx context.Context, catalog *domain.Catalog) (*VectorIndex, error) {
	start := time.Now()
	chunks, err := s.splitter.SplitAll(ProjectCatalog(catalog))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}

	vectors, cached, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	idx, err := NewVectorIndex(chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}

	s.logger.Info().
		Int("chunks", len(chunks)).
		Int("cached", cached).
		Dur("took", time.Since(start)).
		Msg("index built")
	return idx, nil
}

// embedAll embeds chunks in parallel batches, serving repeats from the cache
func (s *RetrievalService) embedAll(ctx context.Context, chunks []string) ([][]float32, int, error) {
	vectors := make([][]float32, len(chunks))
	keys := make([]string, len(chunks))
	var missing []int

	for i, c := range chunks {
		keys[i] = s.cacheKey(c)
		if v, ok := s.cachedVector(ctx, keys[i]); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for start := 0; start < len(missing); start += s.batchSize {
		batch := missing[start:min(start+s.batchSize, len(missing))]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, i := range batch {
				texts[j] = chunks[i]
			}

			var out [][]float32
			err := s.retry.do(gctx, func(ctx context.Context) error {
				var err error
				out, err = s.embedder.Embed(ctx, texts)
				return err
			})
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingFailed, len(out), len(texts))
			}

			for j, i := range batch {
				vectors[i] = out[j]
				s.storeVector(gctx, keys[i], out[j])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return vectors, len(chunks) - len(missing), nil
}

// cacheKey creates the cache key for a chunk.
// Format: "embedding:{model}:{sha256(content)}"
func (s *RetrievalService) cacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("embedding:%s:%s", s.model, hex.EncodeToString(sum[:]))
}

func (s *RetrievalService) cachedVector(ctx context.Context, key string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	v, err := decodeVector(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt cache entry")
		return nil, false
	}
	return v, true
}

func (s *RetrievalService) storeVector(ctx context.Context, key string, v []float32) {
	if s.cache == nil {
		return
	}
	// Log but don't fail if caching fails
	if err := s.cache.Set(ctx, key, encodeVector(v), s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// encodeVector packs a vector as little-endian float32s
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector payload of %d bytes is not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

func generationFailed(err error) error {
	if errors.Is(err, domain.ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
}
