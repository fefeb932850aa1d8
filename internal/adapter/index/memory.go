// Package index provides inverted index stores: per-term posting lists,
// document lengths, and collection statistics, with incremental add/remove.
package index

import (
	"fmt"
	"sort"
	"sync"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// MemoryIndex is an in-memory inverted index. Reads run concurrently;
// mutations take exclusive access, so no reader observes a document
// frequency that disagrees with its posting list.
type MemoryIndex struct {
	mu        sync.RWMutex
	postings  map[string][]domain.Posting
	termFreqs map[string]map[string]int
	docLens   map[string]int
	totalLen  int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings:  make(map[string][]domain.Posting),
		termFreqs: make(map[string]map[string]int),
		docLens:   make(map[string]int),
	}
}

func (s *MemoryIndex) Index(doc port.IndexedDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docLens[doc.ID]; exists {
		s.removeLocked(doc.ID)
	}

	for term, tf := range doc.TermFreqs {
		s.postings[term] = insertPosting(s.postings[term], domain.Posting{DocID: doc.ID, TF: tf})
	}
	s.termFreqs[doc.ID] = doc.TermFreqs
	s.docLens[doc.ID] = doc.Length
	s.totalLen += doc.Length

	return nil
}

func (s *MemoryIndex) Delete(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(docID)
	return nil
}

func (s *MemoryIndex) removeLocked(docID string) {
	length, exists := s.docLens[docID]
	if !exists {
		return
	}

	for term := range s.termFreqs[docID] {
		filtered := s.postings[term][:0]
		for _, p := range s.postings[term] {
			if p.DocID != docID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(s.postings, term)
		} else {
			s.postings[term] = filtered
		}
	}

	delete(s.termFreqs, docID)
	delete(s.docLens, docID)
	s.totalLen -= length
}

func (s *MemoryIndex) Postings(term string) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.postings[term]
	out := make([]domain.Posting, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryIndex) DocLength(docID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	length, ok := s.docLens[docID]
	if !ok {
		return 0, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	return length, nil
}

func (s *MemoryIndex) Stats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{DocCount: len(s.docLens), TotalLen: s.totalLen}
	if stats.DocCount > 0 {
		stats.AvgDocLen = float64(stats.TotalLen) / float64(stats.DocCount)
	}
	return stats, nil
}

func (s *MemoryIndex) Close() error { return nil }

// insertPosting keeps a posting list ordered by document ID, replacing an
// existing posting for the same document.
func insertPosting(postings []domain.Posting, p domain.Posting) []domain.Posting {
	i := sort.Search(len(postings), func(j int) bool {
		return postings[j].DocID >= p.DocID
	})
	if i < len(postings) && postings[i].DocID == p.DocID {
		postings[i] = p
		return postings
	}
	postings = append(postings, domain.Posting{})
	copy(postings[i+1:], postings[i:])
	postings[i] = p
	return postings
}
