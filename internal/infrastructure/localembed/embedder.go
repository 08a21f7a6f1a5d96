// Package localembed runs a sentence-transformer model in process with hugot.
package localembed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// DefaultModel produces 384-dimensional embeddings
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Embedder implements domain.Embedder on a hugot feature extraction pipeline
type Embedder struct {
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
	mu      sync.Mutex
	logger  zerolog.Logger
}

// New prepares model under modelDir (downloading it on first use) and starts
// a pure Go inference session. Model names without an owner prefix map to DefaultModel.
func New(model, modelDir string, logger zerolog.Logger) (*Embedder, error) {
	logger = observability.Component(logger, "localembed")

	modelPath, err := prepareModel(resolveModel(model), modelDir, logger)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "raumania-embedder",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}
	return &Embedder{session: session, run: run, logger: logger}, nil
}

// Embed returns one vector per text, in input order
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	vectors, err := e.run(texts)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: pipeline returned %d embeddings for %d inputs",
			domain.ErrEmbeddingFailed, len(vectors), len(texts))
	}
	e.logger.Debug().Int("inputs", len(texts)).Msg("embed completed")
	return vectors, nil
}

// Close destroys the inference session
func (e *Embedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

func resolveModel(model string) string {
	if !strings.Contains(model, "/") {
		return DefaultModel
	}
	return model
}

// modelPath is where hugot places a downloaded model
func modelPath(model, modelDir string) string {
	return filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))
}

func prepareModel(model, modelDir string, logger zerolog.Logger) (string, error) {
	path := modelPath(model, modelDir)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	logger.Info().Str("model", model).Str("dir", modelDir).Msg("downloading embedding model")
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(model, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloaded, nil
}
