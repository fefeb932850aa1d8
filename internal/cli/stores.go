package cli

import (
	"fmt"

	"go.etcd.io/bbolt"

	"docsearch/config"
	"docsearch/internal/adapter/analyzer"
	"docsearch/internal/adapter/docstore"
	"docsearch/internal/adapter/embedding"
	"docsearch/internal/adapter/index"
	"docsearch/internal/adapter/vector"
	"docsearch/internal/port"
)

// stores bundles the persistent adapters sharing one bolt database.
type stores struct {
	db      *bbolt.DB
	docs    *docstore.BoltStore
	index   *index.BoltIndex
	vectors *vector.BoltIndex // nil when embedding is disabled
}

func openStores(dbPath string, cfg *config.Config) (*stores, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	docs, err := docstore.NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open document store: %w", err)
	}
	idx, err := index.NewBoltIndex(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open inverted index: %w", err)
	}

	s := &stores{db: db, docs: docs, index: idx}
	if cfg.Embedding.Enabled {
		s.vectors, err = vector.NewBoltIndex(db, cfg.Embedding.Dimension)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open vector index: %w", err)
		}
	}
	return s, nil
}

func (s *stores) Close() error {
	return s.db.Close()
}

func newTokenizer(cfg *config.Config) *analyzer.Tokenizer {
	return analyzer.NewTokenizer(analyzer.Options{
		StripStopwords: cfg.Index.StripStopwords,
		UseStemming:    cfg.Index.Stemming,
	})
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}
