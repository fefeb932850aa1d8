// Package usecase wires the adapters into the two application operations:
// building the indexes from documents and answering queries against them.
package usecase

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"docsearch/internal/adapter/fs"
	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// CacheInvalidator is notified after every index mutation so cached query
// results do not outlive the index state they were computed from.
type CacheInvalidator interface {
	Invalidate()
}

// IndexUseCase keeps the document store, inverted index, and vector index in
// step. Every mutation flows through here.
type IndexUseCase struct {
	docs      port.MutableDocumentStore
	index     port.IndexStore
	vectors   port.VectorIndex
	embedder  port.Embedder
	tokenizer port.Tokenizer
	cache     CacheInvalidator
}

// NewIndexUseCase creates the indexing use case. vectors and embedder may be
// nil when dense retrieval is disabled; cache may be nil when no query cache
// is configured.
func NewIndexUseCase(
	docs port.MutableDocumentStore,
	index port.IndexStore,
	vectors port.VectorIndex,
	embedder port.Embedder,
	tokenizer port.Tokenizer,
	cache CacheInvalidator,
) *IndexUseCase {
	return &IndexUseCase{
		docs:      docs,
		index:     index,
		vectors:   vectors,
		embedder:  embedder,
		tokenizer: tokenizer,
		cache:     cache,
	}
}

// Add indexes one document: tokenize into the inverted index, store the
// document, and (when dense retrieval is configured) store its embedding.
// A document with the same ID is replaced everywhere. The embedder is called
// before any store is touched so no lock is held across remote inference.
func (u *IndexUseCase) Add(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID must not be empty", domain.ErrInvalidArgument)
	}

	embedding := doc.Embedding
	if embedding == nil && u.embedder != nil && u.vectors != nil {
		vecs, err := u.embedder.Embed(ctx, []string{doc.Content})
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if len(vecs) != 1 {
			return fmt.Errorf("embedder returned %d vectors for one input", len(vecs))
		}
		embedding = vecs[0]
	}
	doc.Embedding = embedding

	tokens := u.tokenizer.Tokenize(doc.Content)
	freqs := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freqs[token]++
	}
	if err := u.index.Index(port.IndexedDocument{ID: doc.ID, TermFreqs: freqs, Length: len(tokens)}); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	if err := u.docs.Put(doc); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}

	if u.vectors != nil && embedding != nil {
		if err := u.vectors.Add(doc.ID, embedding); err != nil {
			return fmt.Errorf("store embedding for %s: %w", doc.ID, err)
		}
	}

	u.invalidate()
	return nil
}

// Remove deletes a document from every store. Removing an unknown ID is a
// no-op.
func (u *IndexUseCase) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: document ID must not be empty", domain.ErrInvalidArgument)
	}

	if err := u.index.Delete(id); err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}
	if u.vectors != nil {
		if err := u.vectors.Remove(id); err != nil {
			return fmt.Errorf("delete embedding: %w", err)
		}
	}
	if err := u.docs.Delete(id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	u.invalidate()
	return nil
}

// IngestResult summarizes a directory ingestion run.
type IngestResult struct {
	FilesIndexed int
	FilesSkipped int
	FilesDeleted int
	Errors       []string
}

// IngestDirectory walks root and indexes every selected file as one document
// whose ID is its slash-separated relative path. Files already indexed with
// an unchanged modification time are skipped; documents whose files vanished
// are removed. onFile, when non-nil, is called once per walked file and is
// how the CLI drives its progress bar.
func (u *IndexUseCase) IngestDirectory(ctx context.Context, walker *fs.Walker, root string, onFile func()) (*IngestResult, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	existing, err := u.docs.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	existingMod := make(map[string]int64, len(existing))
	for _, doc := range existing {
		existingMod[doc.ID] = metaModTime(doc.Meta)
	}

	result := &IngestResult{}
	seen := make(map[string]bool, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen[file.RelPath] = true
		if onFile != nil {
			onFile()
		}

		if modTime, ok := existingMod[file.RelPath]; ok && modTime >= file.ModTime {
			result.FilesSkipped++
			continue
		}

		content, err := fs.ReadFile(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("read %s: %v", file.Path, err))
			continue
		}

		doc := domain.Document{
			ID:      file.RelPath,
			Content: content,
			Meta: map[string]any{
				"path":     file.RelPath,
				"ext":      strings.ToLower(path.Ext(file.RelPath)),
				"size":     file.Size,
				"mod_time": file.ModTime,
			},
		}
		if err := u.Add(ctx, doc); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("index %s: %v", file.RelPath, err))
			continue
		}
		result.FilesIndexed++
	}

	for id := range existingMod {
		if seen[id] {
			continue
		}
		if err := u.Remove(ctx, id); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", id, err))
			continue
		}
		result.FilesDeleted++
	}

	return result, nil
}

// Rebuild re-indexes every stored document from scratch, re-embedding in
// batches when dense retrieval is configured. Useful after changing tokenizer
// options or the embedding model.
func (u *IndexUseCase) Rebuild(ctx context.Context, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 16
	}

	docs, err := u.docs.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		if u.embedder != nil && u.vectors != nil {
			texts := make([]string, len(batch))
			for i, doc := range batch {
				texts[i] = doc.Content
			}
			vecs, err := u.embedder.Embed(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
		}

		for _, doc := range batch {
			if err := u.Add(ctx, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *IndexUseCase) invalidate() {
	if u.cache != nil {
		u.cache.Invalidate()
	}
}

func metaModTime(meta map[string]any) int64 {
	switch v := meta["mod_time"].(type) {
	case int64:
		return v
	case float64:
		// JSON round-trips integers as float64.
		return int64(v)
	case time.Time:
		return v.Unix()
	default:
		return 0
	}
}
