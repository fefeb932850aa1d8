package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
	"docsearch/internal/port"
)

// Options control one retrieval call.
type Options struct {
	// TopK is the maximum number of results to return. Must be positive.
	TopK int

	// Strategy selects the scoring backend. Empty means the configured
	// default.
	Strategy domain.Strategy

	// Filter restricts results by document metadata. Filtering happens
	// after scoring and before truncation to TopK, so a filter never
	// changes a surviving document's score, only which documents fill the
	// TopK slots.
	Filter filter.Expression
}

// RetrieveUseCase is the retrieval facade. It validates the request, picks
// the strategy's retriever, applies metadata filters, and enforces the
// configured timeout.
type RetrieveUseCase struct {
	retrievers      map[domain.Strategy]port.Retriever
	docs            port.DocumentStore
	defaultStrategy domain.Strategy
	timeout         time.Duration
}

// NewRetrieveUseCase creates the facade. The retrievers map holds one entry
// per strategy the deployment supports; requesting any other strategy fails
// with domain.ErrUnsupportedStrategy. A zero timeout disables the deadline.
func NewRetrieveUseCase(
	retrievers map[domain.Strategy]port.Retriever,
	docs port.DocumentStore,
	defaultStrategy domain.Strategy,
	timeout time.Duration,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		retrievers:      retrievers,
		docs:            docs,
		defaultStrategy: defaultStrategy,
		timeout:         timeout,
	}
}

// Supports reports whether a strategy has a configured retriever.
func (u *RetrieveUseCase) Supports(strategy domain.Strategy) bool {
	_, ok := u.retrievers[strategy]
	return ok
}

// Strategies returns the supported strategies in lexical order.
func (u *RetrieveUseCase) Strategies() []domain.Strategy {
	out := make([]domain.Strategy, 0, len(u.retrievers))
	for s := range u.retrievers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Retrieve answers a query with up to opts.TopK scored documents, ordered by
// descending score with ties broken by ascending document ID.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, opts Options) ([]domain.ScoredResult, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, opts.TopK)
	}
	if opts.Filter != nil {
		if err := opts.Filter.Validate(); err != nil {
			return nil, fmt.Errorf("%w: invalid filter: %v", domain.ErrInvalidArgument, err)
		}
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = u.defaultStrategy
	}
	r, ok := u.retrievers[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStrategy, strategy)
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	// With a filter, score the whole collection first: filtering is
	// post-score, so truncating to TopK before filtering would lose
	// matching documents ranked below the cutoff.
	candidateK := opts.TopK
	if opts.Filter != nil {
		total, err := u.docs.Count(ctx, nil)
		if err != nil {
			return nil, u.mapDeadline(ctx, fmt.Errorf("count documents: %w", err))
		}
		if total == 0 {
			return nil, nil
		}
		candidateK = total
	}

	results, err := r.Search(ctx, query, candidateK)
	if err != nil {
		return nil, u.mapDeadline(ctx, err)
	}

	if opts.Filter != nil {
		results, err = u.applyFilter(ctx, results, opts.Filter)
		if err != nil {
			return nil, u.mapDeadline(ctx, err)
		}
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// applyFilter keeps only results whose document metadata matches, preserving
// score order. Scored documents missing from the store are dropped rather
// than failing the query.
func (u *RetrieveUseCase) applyFilter(ctx context.Context, results []domain.ScoredResult, f filter.Expression) ([]domain.ScoredResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.DocID
	}
	docs, err := u.docs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load documents for filter: %w", err)
	}

	matched := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if f.Matches(doc.Meta) {
			matched[doc.ID] = true
		}
	}

	// Fresh slice: the input may be shared (a cached retriever hands out
	// its stored results), so compacting in place would corrupt it.
	kept := make([]domain.ScoredResult, 0, len(results))
	for _, res := range results {
		if matched[res.DocID] {
			kept = append(kept, res)
		}
	}
	return kept, nil
}

// mapDeadline converts deadline expiry into the domain timeout error so
// callers can distinguish slow queries from cancellation.
func (u *RetrieveUseCase) mapDeadline(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
