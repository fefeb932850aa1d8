package port

import (
	"context"

	"docsearch/internal/domain"
)

// VectorMatch is one vector search hit.
type VectorMatch struct {
	DocID string
	Score float64
}

// VectorIndex stores fixed-dimension embedding vectors keyed by document ID
// and answers nearest-neighbor queries. All vectors in one index share the
// same dimension.
type VectorIndex interface {
	// Add stores a vector, replacing any previous vector for the ID.
	// Vectors of the wrong dimension are rejected with
	// domain.ErrDimensionMismatch.
	Add(docID string, vector []float32) error

	// Remove deletes a vector. Removing an unknown ID is a no-op.
	Remove(docID string) error

	// Search returns up to k matches ordered by descending similarity,
	// ties broken by ascending document ID.
	Search(ctx context.Context, query []float32, k int, metric domain.Metric) ([]VectorMatch, error)

	Dimension() int

	Count() (int, error)

	Close() error
}
