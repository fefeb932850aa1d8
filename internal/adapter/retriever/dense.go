package retriever

import (
	"context"
	"fmt"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// DenseRetriever embeds the query through the external encoder and runs
// nearest-neighbor search over the vector index. The encoder call is the
// only suspension point; no index lock is held across it.
type DenseRetriever struct {
	vectors  port.VectorIndex
	embedder port.Embedder
	metric   domain.Metric
}

// NewDenseRetriever validates the encoder dimension against the vector
// index once, at configuration time, rather than per query.
func NewDenseRetriever(vectors port.VectorIndex, embedder port.Embedder, metric domain.Metric) (*DenseRetriever, error) {
	if embedder.Dimension() != vectors.Dimension() {
		return nil, fmt.Errorf("%w: embedder %q produces %d-dimensional vectors, index expects %d",
			domain.ErrDimensionMismatch, embedder.ModelName(), embedder.Dimension(), vectors.Dimension())
	}
	if metric == "" {
		metric = domain.MetricCosine
	}
	return &DenseRetriever{vectors: vectors, embedder: embedder, metric: metric}, nil
}

func (r *DenseRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}

	matches, err := r.vectors.Search(ctx, embeddings[0], k, r.metric)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredResult, len(matches))
	for i, m := range matches {
		results[i] = domain.ScoredResult{DocID: m.DocID, Score: m.Score, Rank: i + 1}
	}
	return results, nil
}
