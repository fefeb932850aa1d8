package port

import (
	"context"

	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
)

// DocumentStore is the external collaborator that owns document storage.
// The retrieval core only reads through it; writes happen via the index
// use case hooks when documents change.
type DocumentStore interface {
	// GetAll returns every stored document, optionally restricted by a
	// metadata filter. A nil filter matches everything.
	GetAll(ctx context.Context, f filter.Expression) ([]domain.Document, error)

	// GetByIDs returns the documents with the given IDs, skipping IDs that
	// are not stored.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)

	// Count returns the number of documents matching the filter.
	Count(ctx context.Context, f filter.Expression) (int, error)
}

// MutableDocumentStore extends DocumentStore with writes. Ingestion goes
// through it; retrieval only needs the read side.
type MutableDocumentStore interface {
	DocumentStore

	// Put stores a document, replacing any previous one with the same ID.
	Put(doc domain.Document) error

	// Delete removes a document. Deleting an unknown ID is a no-op.
	Delete(id string) error
}
