// Package docstore provides document store collaborators: read-mostly
// repositories of documents and their metadata.
package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
)

// MemoryStore is an in-memory document store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]domain.Document)}
}

// Put stores a document, replacing any previous version.
func (s *MemoryStore) Put(doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return nil
}

// Delete removes a document. Unknown IDs are a no-op.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetAll(ctx context.Context, f filter.Expression) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if f == nil || f.Matches(doc.Meta) {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *MemoryStore) Count(ctx context.Context, f filter.Expression) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f == nil {
		return len(s.docs), nil
	}
	count := 0
	for _, doc := range s.docs {
		if f.Matches(doc.Meta) {
			count++
		}
	}
	return count, nil
}
