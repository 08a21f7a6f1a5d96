package usecase

import (
	"fmt"
	"math"
	"sort"
)

// ScoredChunk is a search hit
type ScoredChunk struct {
	Text  string
	Score float64
}

// VectorIndex is an exact in-memory nearest-neighbour index over chunk embeddings.
// It is immutable after construction and safe for concurrent searches.
type VectorIndex struct {
	texts   []string
	vectors [][]float32
	norms   []float64
	dim     int
}

// NewVectorIndex builds an index. All vectors must share one dimension.
func NewVectorIndex(texts []string, vectors [][]float32) (*VectorIndex, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("index: %d texts but %d vectors", len(texts), len(vectors))
	}

	idx := &VectorIndex{
		texts:   texts,
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("index: vector %d has dimension %d, want %d", i, len(v), idx.dim)
		}
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Len returns the number of indexed chunks
func (idx *VectorIndex) Len() int {
	return len(idx.texts)
}

// Search returns the k chunks most similar to query by cosine similarity.
// Equal scores keep insertion order.
func (idx *VectorIndex) Search(query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(idx.texts) == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("index: query has dimension %d, want %d", len(query), idx.dim)
	}

	qNorm := norm(query)
	hits := make([]ScoredChunk, len(idx.texts))
	for i, v := range idx.vectors {
		hits[i] = ScoredChunk{Text: idx.texts[i], Score: cosine(query, v, qNorm, idx.norms[i])}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
