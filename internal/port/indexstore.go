package port

import "docsearch/internal/domain"

// IndexedDocument is a document reduced to what the inverted index needs:
// per-term frequencies and the total token count.
type IndexedDocument struct {
	ID        string
	TermFreqs map[string]int
	Length    int
}

// IndexStore holds the inverted index: term postings, document lengths, and
// collection statistics. Document frequency of a term is the length of its
// posting list; implementations must keep postings, lengths, and stats
// consistent within each mutation.
type IndexStore interface {
	// Index adds a document, replacing any previous entry with the same ID.
	// A document with no tokens contributes zero postings and length zero.
	Index(doc IndexedDocument) error

	// Delete removes the document's postings, length, and stats share.
	// Deleting an unknown ID is a no-op.
	Delete(docID string) error

	// Postings returns the posting list for a term, ordered by document ID.
	// Unknown terms return an empty list.
	Postings(term string) ([]domain.Posting, error)

	// DocLength returns the token count of an indexed document.
	DocLength(docID string) (int, error)

	Stats() (domain.Stats, error)

	Close() error
}
