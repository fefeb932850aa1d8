package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25Retriever scores lexical overlap with term-frequency saturation (k1)
// and document-length normalization (b). Only documents appearing in at
// least one query term's posting list are scored; the full collection is
// never iterated.
type BM25Retriever struct {
	index     port.IndexStore
	tokenizer port.Tokenizer
	k1        float64
	b         float64
}

func NewBM25Retriever(index port.IndexStore, tokenizer port.Tokenizer, k1, b float64) *BM25Retriever {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	return &BM25Retriever{index: index, tokenizer: tokenizer, k1: k1, b: b}
}

func (r *BM25Retriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
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
	lengths := make(map[string]int)

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

		n := float64(len(postings))
		idf := math.Log(1 + (N-n+0.5)/(n+0.5))

		for i, posting := range postings {
			if i%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			dl, ok := lengths[posting.DocID]
			if !ok {
				dl, err = r.index.DocLength(posting.DocID)
				if err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return nil, fmt.Errorf("%w: posting for %q references unknown document %q",
							domain.ErrIndexCorrupt, term, posting.DocID)
					}
					return nil, err
				}
				lengths[posting.DocID] = dl
			}

			tf := float64(posting.TF)
			norm := r.k1 * (1 - r.b + r.b*float64(dl)/stats.AvgDocLen)
			scores[posting.DocID] += idf * (tf * (r.k1 + 1)) / (tf + norm)
		}
	}

	return rank(scores, k), nil
}
