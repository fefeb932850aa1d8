package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docsearch/config"
	"docsearch/internal/adapter/cache"
	"docsearch/internal/adapter/retriever"
	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
	"docsearch/internal/port"
	"docsearch/internal/usecase"
)

var (
	queryText     string
	queryTopK     int
	queryStrategy string
	queryJSON     bool
	queryFilters  []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search indexed documents",
	Long: `Search for relevant documents using the configured retrieval strategy.

Filters restrict results by document metadata after scoring, as
field=value pairs combined with AND.

Examples:
  docsearch query -q "error handling"
  docsearch query -q "caching" --top-k 5 --strategy tfidf --json
  docsearch query -q "reports" --filter year=2015 --filter kind=report`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().StringVar(&queryStrategy, "strategy", "", "retrieval strategy: tfidf, bm25, dense, hybrid (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "metadata filter as field=value (repeatable)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()

	dbPath := config.DBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docsearch index' first")
	}

	st, err := openStores(dbPath, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	retrievers, err := buildRetrievers(st, cfg)
	if err != nil {
		return err
	}

	facade := usecase.NewRetrieveUseCase(retrievers, st.docs,
		domain.Strategy(cfg.Retrieve.Strategy), time.Duration(cfg.Retrieve.Timeout))

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	f, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}

	results, err := facade.Retrieve(cmd.Context(), queryText, usecase.Options{
		TopK:     topK,
		Strategy: domain.Strategy(queryStrategy),
		Filter:   f,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	docs, err := st.docs.GetByIDs(cmd.Context(), ids)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	byID := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	for _, r := range results {
		fmt.Printf("--- [%d] %s (score: %.4f) ---\n", r.Rank, r.DocID, r.Score)
		if doc, ok := byID[r.DocID]; ok {
			text := doc.Content
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Println(text)
		}
		fmt.Println()
	}
	return nil
}

// buildRetrievers wires one retriever per strategy the configuration can
// support. Dense and hybrid need the embedding sidecar; without it the
// facade rejects them as unsupported.
func buildRetrievers(st *stores, cfg *config.Config) (map[domain.Strategy]port.Retriever, error) {
	tokenizer := newTokenizer(cfg)

	bm25 := retriever.NewBM25Retriever(st.index, tokenizer, cfg.Index.K1, cfg.Index.B)
	tfidf := retriever.NewTFIDFRetriever(st.index, tokenizer)

	retrievers := map[domain.Strategy]port.Retriever{
		domain.StrategyBM25:  bm25,
		domain.StrategyTFIDF: tfidf,
	}

	if cfg.Embedding.Enabled && st.vectors != nil {
		embedder, err := newEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		dense, err := retriever.NewDenseRetriever(st.vectors, embedder, domain.Metric(cfg.Retrieve.Metric))
		if err != nil {
			return nil, fmt.Errorf("failed to create dense retriever: %w", err)
		}
		retrievers[domain.StrategyDense] = dense
		retrievers[domain.StrategyHybrid] = retriever.NewHybridRetriever(
			bm25, dense, cfg.Retrieve.RRFK, cfg.Retrieve.BM25Weight)
	}

	if cfg.Retrieve.CacheSize > 0 {
		qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTL))
		for strategy, r := range retrievers {
			retrievers[strategy] = cache.NewCachedRetriever(r, qc, string(strategy))
		}
	}
	return retrievers, nil
}

// parseFilters turns field=value pairs into an AND of equality predicates.
// Values that parse as integers or floats compare numerically.
func parseFilters(pairs []string) (filter.Expression, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	exprs := make([]filter.Expression, 0, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q, want field=value", pair)
		}

		var value any = raw
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			value = n
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			value = f
		}
		exprs = append(exprs, filter.Eq(field, value))
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return filter.And(exprs...), nil
}
