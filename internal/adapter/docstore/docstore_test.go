package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
	"docsearch/internal/domain/filter"
)

type store interface {
	Put(doc domain.Document) error
	Delete(id string) error
	GetAll(ctx context.Context, f filter.Expression) ([]domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	Count(ctx context.Context, f filter.Expression) (int, error)
}

func openStores(t *testing.T) map[string]store {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "docs.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	bolt, err := NewBoltStore(db)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]store{"memory": NewMemoryStore(), "bolt": bolt}
}

func seed(t *testing.T, s store) {
	t.Helper()
	docs := []domain.Document{
		{ID: "a", Content: "first", Meta: map[string]any{"year": 2016, "lang": "en"}},
		{ID: "b", Content: "second", Meta: map[string]any{"year": 2020, "lang": "en"}},
		{ID: "c", Content: "third", Meta: map[string]any{"year": 2020, "lang": "de"}},
	}
	for _, doc := range docs {
		if err := s.Put(doc); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGetAllAndCount(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			all, err := s.GetAll(ctx, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Errorf("GetAll(nil) = %d docs, want 3", len(all))
			}

			count, err := s.Count(ctx, filter.Eq("lang", "en"))
			if err != nil {
				t.Fatal(err)
			}
			if count != 2 {
				t.Errorf("Count(lang=en) = %d, want 2", count)
			}

			filtered, err := s.GetAll(ctx, filter.In("year", 2015, 2016, 2017))
			if err != nil {
				t.Fatal(err)
			}
			if len(filtered) != 1 || filtered[0].ID != "a" {
				t.Errorf("filtered = %v, want just doc a", ids(filtered))
			}
		})
	}
}

func TestGetByIDsSkipsUnknown(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			docs, err := s.GetByIDs(ctx, []string{"b", "ghost", "a"})
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != 2 {
				t.Fatalf("GetByIDs = %v, want 2 docs", ids(docs))
			}
			if docs[0].ID != "b" || docs[1].ID != "a" {
				t.Errorf("GetByIDs order = %v, want requested order", ids(docs))
			}
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			if err := s.Delete("b"); err != nil {
				t.Fatal(err)
			}

			count, _ := s.Count(ctx, nil)
			if count != 2 {
				t.Errorf("count after delete = %d, want 2", count)
			}
		})
	}
}

func TestBoltMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "roundtrip.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s, err := NewBoltStore(db)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Put(domain.Document{
		ID:   "doc",
		Meta: map[string]any{"year": 2016, "published": "2016-05-01", "tags": []string{"go", "search"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// JSON turns ints into float64 and lists into []any; filters still apply.
	docs, err := s.GetAll(ctx, filter.And(
		filter.In("year", 2015, 2016, 2017),
		filter.Gte("published", "2016-01-01"),
		filter.Eq("tags", "go"),
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("expected round-tripped metadata to match filter, got %v", ids(docs))
	}
}

func ids(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
