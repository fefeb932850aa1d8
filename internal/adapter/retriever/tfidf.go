package retriever

import (
	"context"
	"fmt"
	"math"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// TFIDFRetriever scores documents by log-dampened term frequency times
// inverse document frequency. Documents sharing no terms with the query are
// never candidates; candidates whose score rounds to zero (every shared term
// present in all documents) are dropped from the ranked output.
type TFIDFRetriever struct {
	index     port.IndexStore
	tokenizer port.Tokenizer
}

func NewTFIDFRetriever(index port.IndexStore, tokenizer port.Tokenizer) *TFIDFRetriever {
	return &TFIDFRetriever{index: index, tokenizer: tokenizer}
}

func (r *TFIDFRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	queryTokens := r.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	stats, err := r.index.Stats()
	if err != nil {
		return nil, err
	}
	if stats.DocCount == 0 {
		return nil, nil
	}
	N := float64(stats.DocCount)

	scores := make(map[string]float64)

	for _, term := range queryTokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		postings, err := r.index.Postings(term)
		if err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			continue
		}
		if df := len(postings); df > stats.DocCount {
			return nil, fmt.Errorf("%w: term %q has df %d in a collection of %d",
				domain.ErrIndexCorrupt, term, df, stats.DocCount)
		}

		idf := math.Log(N / float64(len(postings)))

		for i, posting := range postings {
			if i%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			tf := 1 + math.Log(float64(posting.TF))
			scores[posting.DocID] += tf * idf
		}
	}

	for id, score := range scores {
		if score <= 0 {
			delete(scores, id)
		}
	}

	return rank(scores, k), nil
}
