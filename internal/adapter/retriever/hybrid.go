package retriever

import (
	"context"
	"fmt"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// HybridRetriever fuses a sparse and a dense result list with Reciprocal
// Rank Fusion: score = Σ weight/(rrfK + rank) over the lists a document
// appears in.
type HybridRetriever struct {
	sparse       port.Retriever
	dense        port.Retriever
	rrfK         int
	sparseWeight float64
}

func NewHybridRetriever(sparse, dense port.Retriever, rrfK int, sparseWeight float64) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	if sparseWeight < 0 || sparseWeight > 1 {
		sparseWeight = 0.5
	}
	return &HybridRetriever{sparse: sparse, dense: dense, rrfK: rrfK, sparseWeight: sparseWeight}
}

func (r *HybridRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	// Widen the candidate pool so fusion has something to reorder.
	candidateK := k * 3
	if candidateK < 20 {
		candidateK = 20
	}

	sparseResults, err := r.sparse.Search(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	denseResults, err := r.dense.Search(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	fused := make(map[string]float64)
	for i, res := range sparseResults {
		fused[res.DocID] += r.sparseWeight / float64(r.rrfK+i+1)
	}
	denseWeight := 1 - r.sparseWeight
	for i, res := range denseResults {
		fused[res.DocID] += denseWeight / float64(r.rrfK+i+1)
	}

	return rank(fused, k), nil
}
