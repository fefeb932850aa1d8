package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docsearch/internal/adapter/analyzer"
	"docsearch/internal/adapter/index"
	"docsearch/internal/domain"
	"docsearch/internal/port"
)

func indexTokens(t *testing.T, idx port.IndexStore, tok port.Tokenizer, id, content string) {
	t.Helper()
	tokens := tok.Tokenize(content)
	freqs := make(map[string]int)
	for _, token := range tokens {
		freqs[token]++
	}
	if err := idx.Index(port.IndexedDocument{ID: id, TermFreqs: freqs, Length: len(tokens)}); err != nil {
		t.Fatal(err)
	}
}

func TestBM25EndToEnd(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{StripStopwords: true})

	indexTokens(t, idx, tok, "short", "the cat sat")
	indexTokens(t, idx, tok, "long", "the cat sat on the mat")
	indexTokens(t, idx, tok, "dogs", "dogs bark")

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	results, err := r.Search(context.Background(), "cat sat", 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
	// Both cat/sat documents outrank "dogs bark", and length normalization
	// favors the shorter document with equal overlap.
	if results[0].DocID != "short" {
		t.Errorf("top result = %s, want short", results[0].DocID)
	}
	if results[1].DocID != "long" {
		t.Errorf("second result = %s, want long", results[1].DocID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %v", results)
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", results[0].Rank, results[1].Rank)
	}
}

func TestBM25MonotonicInTermFrequency(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{})

	// Same length, increasing tf of the query term.
	for _, doc := range []port.IndexedDocument{
		{ID: "tf1", TermFreqs: map[string]int{"cat": 1, "pad": 9}, Length: 10},
		{ID: "tf3", TermFreqs: map[string]int{"cat": 3, "pad": 7}, Length: 10},
		{ID: "tf6", TermFreqs: map[string]int{"cat": 6, "pad": 4}, Length: 10},
	} {
		if err := idx.Index(doc); err != nil {
			t.Fatal(err)
		}
	}

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	results, err := r.Search(context.Background(), "cat", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byID := make(map[string]float64)
	for _, res := range results {
		byID[res.DocID] = res.Score
	}
	if !(byID["tf6"] > byID["tf3"] && byID["tf3"] > byID["tf1"]) {
		t.Errorf("scores not increasing with tf: %v", byID)
	}

	// Saturation: the gain from tf 3→6 is smaller than from tf 1→3.
	if byID["tf6"]-byID["tf3"] >= byID["tf3"]-byID["tf1"] {
		t.Errorf("expected diminishing gains, got %v", byID)
	}
}

func TestBM25LengthNormalization(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{})

	// Same tf, increasing document length.
	for _, doc := range []port.IndexedDocument{
		{ID: "len02", TermFreqs: map[string]int{"cat": 1, "a": 1}, Length: 2},
		{ID: "len10", TermFreqs: map[string]int{"cat": 1, "b": 9}, Length: 10},
		{ID: "len50", TermFreqs: map[string]int{"cat": 1, "c": 49}, Length: 50},
	} {
		if err := idx.Index(doc); err != nil {
			t.Fatal(err)
		}
	}

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	results, err := r.Search(context.Background(), "cat", 3)
	if err != nil {
		t.Fatal(err)
	}

	byID := make(map[string]float64)
	for _, res := range results {
		byID[res.DocID] = res.Score
	}
	if !(byID["len02"] > byID["len10"] && byID["len10"] > byID["len50"]) {
		t.Errorf("scores not decreasing with length: %v", byID)
	}
}

func TestBM25TieBreakByDocID(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{})

	// Identical documents score identically.
	for _, id := range []string{"delta", "alpha", "charlie", "bravo"} {
		if err := idx.Index(port.IndexedDocument{ID: id, TermFreqs: map[string]int{"cat": 1}, Length: 1}); err != nil {
			t.Fatal(err)
		}
	}

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	results, err := r.Search(context.Background(), "cat", 4)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"alpha", "bravo", "charlie", "delta"}
	for i, res := range results {
		if res.DocID != want[i] {
			t.Fatalf("tie order = %v, want %v", results, want)
		}
	}
}

func TestBM25EmptyQueryAndNoMatches(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{StripStopwords: true})
	indexTokens(t, idx, tok, "doc", "hello world")

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)

	results, err := r.Search(context.Background(), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for empty query, got %v", results)
	}

	results, err = r.Search(context.Background(), "zzznonexistent", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for non-matching query, got %v", results)
	}
}

func TestBM25InvalidK(t *testing.T) {
	r := NewBM25Retriever(index.NewMemoryIndex(), analyzer.NewTokenizer(analyzer.Options{}), DefaultK1, DefaultB)

	for _, k := range []int{0, -5} {
		_, err := r.Search(context.Background(), "cat", k)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("k=%d: got %v, want ErrInvalidArgument", k, err)
		}
	}
}

// corruptIndex serves a posting for a document whose length is unknown.
type corruptIndex struct {
	*index.MemoryIndex
}

func (c corruptIndex) Postings(term string) ([]domain.Posting, error) {
	return []domain.Posting{{DocID: "ghost", TF: 1}}, nil
}

func TestBM25CorruptIndexIsFatal(t *testing.T) {
	mem := index.NewMemoryIndex()
	if err := mem.Index(port.IndexedDocument{ID: "real", TermFreqs: map[string]int{"cat": 1}, Length: 1}); err != nil {
		t.Fatal(err)
	}

	r := NewBM25Retriever(corruptIndex{mem}, analyzer.NewTokenizer(analyzer.Options{}), DefaultK1, DefaultB)
	_, err := r.Search(context.Background(), "cat", 1)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("got %v, want ErrIndexCorrupt", err)
	}
}

// errAfterContext reports cancellation only after a number of Err calls,
// exposing where cancellation is polled during a search.
type errAfterContext struct {
	context.Context
	remaining int
}

func (c *errAfterContext) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}
	c.remaining--
	return nil
}

func TestBM25CancelsDuringPostingScan(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{})

	// One term with a posting list long enough that cancellation must be
	// noticed mid-scan, not just between query terms.
	for i := 0; i < 300; i++ {
		doc := port.IndexedDocument{ID: fmt.Sprintf("doc%03d", i), TermFreqs: map[string]int{"cat": 1}, Length: 1}
		if err := idx.Index(doc); err != nil {
			t.Fatal(err)
		}
	}

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	ctx := &errAfterContext{Context: context.Background(), remaining: 2}
	_, err := r.Search(ctx, "cat", 5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled mid-scan", err)
	}
}

func TestBM25CancelledContext(t *testing.T) {
	idx := index.NewMemoryIndex()
	tok := analyzer.NewTokenizer(analyzer.Options{})
	indexTokens(t, idx, tok, "doc", "cat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewBM25Retriever(idx, tok, DefaultK1, DefaultB)
	_, err := r.Search(ctx, "cat", 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
