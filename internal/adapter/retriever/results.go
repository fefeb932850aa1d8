// Package retriever implements the scoring strategies: TF-IDF and BM25 over
// an inverted index, dense vector similarity, and hybrid rank fusion. Every
// retriever returns results ordered by descending score with ties broken by
// ascending document ID.
package retriever

import (
	"sort"

	"docsearch/internal/domain"
)

// checkEvery is how many postings a sparse scorer scans between context
// cancellation checks.
const checkEvery = 256

// rank turns a doc→score mapping into an ordered, truncated result list.
func rank(scores map[string]float64, k int) []domain.ScoredResult {
	results := make([]domain.ScoredResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, domain.ScoredResult{DocID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
