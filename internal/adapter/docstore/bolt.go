package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
)

var bucketDocuments = []byte("documents")

// BoltStore persists documents in BoltDB. Metadata survives as JSON, so
// numbers come back as float64 and dates as RFC 3339 strings; the filter
// evaluator coerces both.
type BoltStore struct {
	db *bbolt.DB
}

type documentRecord struct {
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create documents bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}
	record := documentRecord{Content: doc.Content, Meta: doc.Meta, Embedding: doc.Embedding}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(id))
	})
}

func (s *BoltStore) GetAll(ctx context.Context, f filter.Expression) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			doc, err := decodeDocument(k, v)
			if err != nil {
				return err
			}
			if f == nil || f.Matches(doc.Meta) {
				docs = append(docs, doc)
			}
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(ids))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		for _, id := range ids {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			doc, err := decodeDocument([]byte(id), data)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func (s *BoltStore) Count(ctx context.Context, f filter.Expression) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if f == nil {
			count = b.Stats().KeyN
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			doc, err := decodeDocument(k, v)
			if err != nil {
				return err
			}
			if f.Matches(doc.Meta) {
				count++
			}
			return nil
		})
	})
	return count, err
}

func decodeDocument(k, v []byte) (domain.Document, error) {
	var record documentRecord
	if err := json.Unmarshal(v, &record); err != nil {
		return domain.Document{}, fmt.Errorf("decode document %q: %w", k, err)
	}
	return domain.Document{
		ID:        string(k),
		Content:   record.Content,
		Meta:      record.Meta,
		Embedding: record.Embedding,
	}, nil
}
