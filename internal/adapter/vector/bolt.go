package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

var bucketVectors = []byte("vectors")

// BoltIndex persists vectors in BoltDB and keeps an in-memory copy for fast
// scans, so searches never touch disk.
type BoltIndex struct {
	db      *bbolt.DB
	dim     int
	mu      sync.RWMutex
	vectors map[string][]float32
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

func NewBoltIndex(db *bbolt.DB, dimension int) (*BoltIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create vectors bucket: %w", err)
	}

	s := &BoltIndex{db: db, dim: dimension, vectors: make(map[string][]float32)}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltIndex) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("%w: vector %q: %v", domain.ErrIndexCorrupt, k, err)
			}
			if len(stored.Vector) != s.dim {
				return fmt.Errorf("%w: vector %q has dimension %d, index expects %d",
					domain.ErrDimensionMismatch, k, len(stored.Vector), s.dim)
			}
			s.vectors[string(k)] = stored.Vector
			return nil
		})
	})
}

func (s *BoltIndex) Add(docID string, vec []float32) error {
	if docID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}
	if len(vec) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dim, len(vec))
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	data, err := json.Marshal(storedVector{Vector: stored})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Put([]byte(docID), data)
	})
	if err != nil {
		return err
	}
	s.vectors[docID] = stored
	return nil
}

func (s *BoltIndex) Remove(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Delete([]byte(docID))
	})
	if err != nil {
		return err
	}
	delete(s.vectors, docID)
	return nil
}

func (s *BoltIndex) Search(ctx context.Context, query []float32, k int, metric domain.Metric) ([]port.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(ctx, s.vectors, s.dim, query, k, metric)
}

func (s *BoltIndex) Dimension() int { return s.dim }

func (s *BoltIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *BoltIndex) Close() error { return nil }
