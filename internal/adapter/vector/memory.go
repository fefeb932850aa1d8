// Package vector provides exact nearest-neighbor indexes over fixed-dimension
// embedding vectors. Search is a full scan; ranked output is deterministic,
// with ties broken by ascending document ID.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// checkEvery bounds how many similarities are computed between context
// cancellation checks during a scan.
const checkEvery = 256

// MemoryIndex is an in-memory vector index with brute-force search.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float32
}

func NewMemoryIndex(dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}
	return &MemoryIndex{dim: dimension, vectors: make(map[string][]float32)}, nil
}

func (s *MemoryIndex) Add(docID string, vec []float32) error {
	if docID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}
	if len(vec) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dim, len(vec))
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	s.mu.Lock()
	s.vectors[docID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryIndex) Remove(docID string) error {
	s.mu.Lock()
	delete(s.vectors, docID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryIndex) Search(ctx context.Context, query []float32, k int, metric domain.Metric) ([]port.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(ctx, s.vectors, s.dim, query, k, metric)
}

func (s *MemoryIndex) Dimension() int { return s.dim }

func (s *MemoryIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *MemoryIndex) Close() error { return nil }

// scan computes the similarity of every stored vector against the query and
// returns the k best.
func scan(ctx context.Context, vectors map[string][]float32, dim int, query []float32, k int, metric domain.Metric) ([]port.VectorMatch, error) {
	if len(query) != dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dim, len(query))
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	sim, err := similarityFunc(metric)
	if err != nil {
		return nil, err
	}

	matches := make([]port.VectorMatch, 0, len(vectors))
	i := 0
	for id, vec := range vectors {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i++
		matches = append(matches, port.VectorMatch{DocID: id, Score: sim(query, vec)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DocID < matches[j].DocID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func similarityFunc(metric domain.Metric) (func(a, b []float32) float64, error) {
	switch metric {
	case domain.MetricDotProduct:
		return dotProduct, nil
	case domain.MetricCosine:
		return cosineSimilarity, nil
	}
	return nil, fmt.Errorf("%w: unknown similarity metric %q", domain.ErrInvalidArgument, metric)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
