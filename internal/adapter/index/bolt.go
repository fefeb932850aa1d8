package index

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

var (
	bucketTerms    = []byte("terms")
	bucketDocTerms = []byte("doc_terms")
	bucketDocLens  = []byte("doc_lens")
	bucketStats    = []byte("index_stats")
	keyStats       = []byte("collection_stats")
)

// BoltIndex is an inverted index persisted in BoltDB. Each mutation runs in
// a single update transaction, so postings, lengths, and stats stay
// consistent from any reader's perspective.
type BoltIndex struct {
	db *bbolt.DB
}

type docTermsRecord struct {
	TermFreqs map[string]int `json:"tf"`
	Length    int            `json:"len"`
}

func NewBoltIndex(db *bbolt.DB) (*BoltIndex, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketTerms, bucketDocTerms, bucketDocLens, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BoltIndex{db: db}, nil
}

func (s *BoltIndex) Index(doc port.IndexedDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteDocTx(tx, doc.ID); err != nil {
			return err
		}

		terms := tx.Bucket(bucketTerms)
		for term, tf := range doc.TermFreqs {
			var postings []domain.Posting
			if data := terms.Get([]byte(term)); data != nil {
				if err := json.Unmarshal(data, &postings); err != nil {
					return fmt.Errorf("%w: postings for %q: %v", domain.ErrIndexCorrupt, term, err)
				}
			}
			postings = insertPosting(postings, domain.Posting{DocID: doc.ID, TF: tf})
			data, err := json.Marshal(postings)
			if err != nil {
				return err
			}
			if err := terms.Put([]byte(term), data); err != nil {
				return err
			}
		}

		record := docTermsRecord{TermFreqs: doc.TermFreqs, Length: doc.Length}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocTerms).Put([]byte(doc.ID), data); err != nil {
			return err
		}
		lenData, err := json.Marshal(doc.Length)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocLens).Put([]byte(doc.ID), lenData); err != nil {
			return err
		}

		return adjustStatsTx(tx, 1, doc.Length)
	})
}

func (s *BoltIndex) Delete(docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteDocTx(tx, docID)
	})
}

// deleteDocTx removes a document's postings, term record, length, and stats
// share within the caller's transaction. Unknown IDs are a no-op.
func deleteDocTx(tx *bbolt.Tx, docID string) error {
	docTerms := tx.Bucket(bucketDocTerms)
	data := docTerms.Get([]byte(docID))
	if data == nil {
		return nil
	}
	var record docTermsRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("%w: term record for %q: %v", domain.ErrIndexCorrupt, docID, err)
	}

	terms := tx.Bucket(bucketTerms)
	for term := range record.TermFreqs {
		raw := terms.Get([]byte(term))
		if raw == nil {
			return fmt.Errorf("%w: term %q indexed for %q has no postings", domain.ErrIndexCorrupt, term, docID)
		}
		var postings []domain.Posting
		if err := json.Unmarshal(raw, &postings); err != nil {
			return fmt.Errorf("%w: postings for %q: %v", domain.ErrIndexCorrupt, term, err)
		}

		filtered := postings[:0]
		for _, p := range postings {
			if p.DocID != docID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			if err := terms.Delete([]byte(term)); err != nil {
				return err
			}
			continue
		}
		updated, err := json.Marshal(filtered)
		if err != nil {
			return err
		}
		if err := terms.Put([]byte(term), updated); err != nil {
			return err
		}
	}

	if err := docTerms.Delete([]byte(docID)); err != nil {
		return err
	}
	if err := tx.Bucket(bucketDocLens).Delete([]byte(docID)); err != nil {
		return err
	}
	return adjustStatsTx(tx, -1, -record.Length)
}

func adjustStatsTx(tx *bbolt.Tx, docDelta, lenDelta int) error {
	b := tx.Bucket(bucketStats)

	var stats domain.Stats
	if data := b.Get(keyStats); data != nil {
		if err := json.Unmarshal(data, &stats); err != nil {
			return fmt.Errorf("%w: stats: %v", domain.ErrIndexCorrupt, err)
		}
	}

	stats.DocCount += docDelta
	stats.TotalLen += lenDelta
	stats.AvgDocLen = 0
	if stats.DocCount > 0 {
		stats.AvgDocLen = float64(stats.TotalLen) / float64(stats.DocCount)
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return b.Put(keyStats, data)
}

func (s *BoltIndex) Postings(term string) ([]domain.Posting, error) {
	var postings []domain.Posting
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTerms).Get([]byte(term))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &postings)
	})
	return postings, err
}

func (s *BoltIndex) DocLength(docID string) (int, error) {
	var length int
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocLens).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
		}
		return json.Unmarshal(data, &length)
	})
	return length, err
}

func (s *BoltIndex) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltIndex) Close() error { return nil }
