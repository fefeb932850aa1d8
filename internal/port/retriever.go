package port

import (
	"context"

	"docsearch/internal/domain"
)

// Retriever answers a free-text query with up to k scored documents, ordered
// by descending score with ties broken by ascending document ID.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error)
}
