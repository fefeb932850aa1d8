package domain

type Document struct {
	ID        string
	Content   string
	Meta      map[string]any
	Embedding []float32
}

// Posting records one document containing a term, with its in-document frequency.
type Posting struct {
	DocID string
	TF    int
}

type Stats struct {
	DocCount  int
	TotalLen  int
	AvgDocLen float64
}

type ScoredResult struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Strategy selects the retrieval family used to answer a query.
type Strategy string

const (
	StrategyTFIDF  Strategy = "tfidf"
	StrategyBM25   Strategy = "bm25"
	StrategyDense  Strategy = "dense"
	StrategyHybrid Strategy = "hybrid"
)

// Metric is the similarity function for vector search.
type Metric string

const (
	MetricDotProduct Metric = "dot_product"
	MetricCosine     Metric = "cosine"
)
