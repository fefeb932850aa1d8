package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docsearch/internal/adapter/analyzer"
	"docsearch/internal/adapter/docstore"
	"docsearch/internal/adapter/embedding"
	"docsearch/internal/adapter/fs"
	"docsearch/internal/adapter/index"
	"docsearch/internal/adapter/vector"
	"docsearch/internal/domain"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() { c.calls++ }

func TestIndexAddAndRemove(t *testing.T) {
	docs := docstore.NewMemoryStore()
	idx := index.NewMemoryIndex()
	vectors, err := vector.NewMemoryIndex(16)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(16)
	inval := &countingInvalidator{}
	tok := analyzer.NewTokenizer(analyzer.Options{})

	u := NewIndexUseCase(docs, idx, vectors, embedder, tok, inval)
	ctx := context.Background()

	if err := u.Add(ctx, domain.Document{ID: "a", Content: "cat sat"}); err != nil {
		t.Fatal(err)
	}

	// All three stores see the document.
	if n, _ := docs.Count(ctx, nil); n != 1 {
		t.Errorf("docstore count = %d, want 1", n)
	}
	if postings, _ := idx.Postings("cat"); len(postings) != 1 {
		t.Errorf("postings for cat = %v, want one", postings)
	}
	if n, _ := vectors.Count(); n != 1 {
		t.Errorf("vector count = %d, want 1", n)
	}
	if inval.calls != 1 {
		t.Errorf("cache invalidated %d times, want 1", inval.calls)
	}

	if err := u.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := docs.Count(ctx, nil); n != 0 {
		t.Errorf("docstore count after remove = %d, want 0", n)
	}
	if postings, _ := idx.Postings("cat"); len(postings) != 0 {
		t.Errorf("postings after remove = %v, want empty", postings)
	}
	if n, _ := vectors.Count(); n != 0 {
		t.Errorf("vector count after remove = %d, want 0", n)
	}
	if inval.calls != 2 {
		t.Errorf("cache invalidated %d times, want 2", inval.calls)
	}
}

func TestIndexAddValidatesID(t *testing.T) {
	u := NewIndexUseCase(docstore.NewMemoryStore(), index.NewMemoryIndex(), nil, nil,
		analyzer.NewTokenizer(analyzer.Options{}), nil)

	if err := u.Add(context.Background(), domain.Document{Content: "no id"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
	if err := u.Remove(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}

func TestIndexAddReplacesDocument(t *testing.T) {
	idx := index.NewMemoryIndex()
	u := NewIndexUseCase(docstore.NewMemoryStore(), idx, nil, nil,
		analyzer.NewTokenizer(analyzer.Options{}), nil)
	ctx := context.Background()

	if err := u.Add(ctx, domain.Document{ID: "a", Content: "old words"}); err != nil {
		t.Fatal(err)
	}
	if err := u.Add(ctx, domain.Document{ID: "a", Content: "new words"}); err != nil {
		t.Fatal(err)
	}

	if postings, _ := idx.Postings("old"); len(postings) != 0 {
		t.Errorf("stale postings survived re-add: %v", postings)
	}
	if postings, _ := idx.Postings("new"); len(postings) != 1 {
		t.Errorf("postings for new = %v, want one", postings)
	}
	stats, _ := idx.Stats()
	if stats.DocCount != 1 {
		t.Errorf("doc count = %d, want 1", stats.DocCount)
	}
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes/a.txt", "the cat sat")
	writeFile(t, root, "notes/b.txt", "dogs bark")
	writeFile(t, root, "skip.bin", "binary")

	docs := docstore.NewMemoryStore()
	idx := index.NewMemoryIndex()
	u := NewIndexUseCase(docs, idx, nil, nil,
		analyzer.NewTokenizer(analyzer.Options{StripStopwords: true}), nil)

	walker := fs.NewWalker([]string{"**/*.txt"}, nil)
	ctx := context.Background()

	walked := 0
	result, err := u.IngestDirectory(ctx, walker, root, func() { walked++ })
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesIndexed != 2 || result.FilesSkipped != 0 || result.FilesDeleted != 0 {
		t.Fatalf("result = %+v, want 2 indexed", result)
	}
	if walked != 2 {
		t.Errorf("progress callback fired %d times, want 2", walked)
	}

	// Unchanged files are skipped on a second run.
	result, err = u.IngestDirectory(ctx, walker, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesIndexed != 0 || result.FilesSkipped != 2 {
		t.Fatalf("second run = %+v, want 2 skipped", result)
	}

	// Removed files get deleted from the stores.
	if err := os.Remove(filepath.Join(root, "notes", "b.txt")); err != nil {
		t.Fatal(err)
	}
	result, err = u.IngestDirectory(ctx, walker, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesDeleted != 1 {
		t.Fatalf("third run = %+v, want 1 deleted", result)
	}
	if n, _ := docs.Count(ctx, nil); n != 1 {
		t.Errorf("docstore count = %d, want 1", n)
	}
	if postings, _ := idx.Postings("bark"); len(postings) != 0 {
		t.Errorf("postings for deleted file survived: %v", postings)
	}
}

func TestRebuildEmbedsInBatches(t *testing.T) {
	docs := docstore.NewMemoryStore()
	idx := index.NewMemoryIndex()
	vectors, err := vector.NewMemoryIndex(16)
	if err != nil {
		t.Fatal(err)
	}
	tok := analyzer.NewTokenizer(analyzer.Options{})
	ctx := context.Background()

	// Seed documents without embeddings through a dense-free use case.
	seed := NewIndexUseCase(docs, idx, nil, nil, tok, nil)
	for _, id := range []string{"a", "b", "c"} {
		if err := seed.Add(ctx, domain.Document{ID: id, Content: "cat " + id}); err != nil {
			t.Fatal(err)
		}
	}

	u := NewIndexUseCase(docs, idx, vectors, embedding.NewMockEmbedder(16), tok, nil)
	if err := u.Rebuild(ctx, 2); err != nil {
		t.Fatal(err)
	}

	if n, _ := vectors.Count(); n != 3 {
		t.Errorf("vector count after rebuild = %d, want 3", n)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
