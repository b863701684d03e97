package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/clientscore/internal/cache"
	"github.com/ppiankov/clientscore/internal/model"
)

// storeFactories lets every contract test run against each implementation
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(":memory:")
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"cached": func() Store {
			return NewCachedStore(NewMemoryStore(), cache.NewMemoryCache(time.Minute, time.Minute), 0)
		},
	}
}

func sampleRecords() []model.ClientRecord {
	return []model.ClientRecord{
		{
			ID:             1,
			Dt:             ptr("2024-01-01"),
			Age:            ptr(34),
			Gender:         ptr("F"),
			AdminArea:      ptr("Moscow"),
			IncomeValue:    decimal.NewNullDecimal(decimal.RequireFromString("85000.50")),
			IncomeCategory: ptr("mid"),
			Features:       `{"extra_col":7}`,
		},
		{ID: 2, Gender: ptr("M")},
		{ID: 3, Age: ptr(51), Features: `{"x":"y"}`},
	}
}

func TestStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			if err := s.SaveAll(ctx, sampleRecords()); err != nil {
				t.Fatalf("SaveAll failed: %v", err)
			}

			n, err := s.Count(ctx)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if n != 3 {
				t.Errorf("expected 3 records, got %d", n)
			}

			got, err := s.FindByID(ctx, 1)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			want := sampleRecords()[0]
			if diff := cmp.Diff(want, *got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			sparse, err := s.FindByID(ctx, 2)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if sparse.Age != nil || sparse.IncomeValue.Valid || sparse.Features != "" {
				t.Errorf("expected unset optional fields, got %+v", sparse)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			if _, err := s.FindByID(ctx, 404); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_FindAllPaginates(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			if err := s.SaveAll(ctx, sampleRecords()); err != nil {
				t.Fatalf("SaveAll failed: %v", err)
			}

			first, err := s.FindAll(ctx, 0, 2)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if len(first) != 2 || first[0].ID != 1 || first[1].ID != 2 {
				t.Errorf("unexpected first page: %v", ids(first))
			}

			second, err := s.FindAll(ctx, 1, 2)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if len(second) != 1 || second[0].ID != 3 {
				t.Errorf("unexpected second page: %v", ids(second))
			}

			beyond, err := s.FindAll(ctx, 5, 2)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if len(beyond) != 0 {
				t.Errorf("expected empty page, got %v", ids(beyond))
			}

			if _, err := s.FindAll(ctx, -1, 2); !errors.Is(err, ErrInvalidPage) {
				t.Errorf("expected ErrInvalidPage for negative page, got %v", err)
			}
			if _, err := s.FindAll(ctx, 0, 0); !errors.Is(err, ErrInvalidPage) {
				t.Errorf("expected ErrInvalidPage for zero size, got %v", err)
			}
		})
	}
}

func TestStore_SaveAllReplacesSameID(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			if err := s.SaveAll(ctx, sampleRecords()); err != nil {
				t.Fatalf("SaveAll failed: %v", err)
			}
			// prime the cache for the decorated store
			if _, err := s.FindByID(ctx, 2); err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}

			if err := s.SaveAll(ctx, []model.ClientRecord{{ID: 2, Gender: ptr("F")}}); err != nil {
				t.Fatalf("SaveAll failed: %v", err)
			}

			n, _ := s.Count(ctx)
			if n != 3 {
				t.Errorf("expected 3 records after upsert, got %d", n)
			}
			got, err := s.FindByID(ctx, 2)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if got.Gender == nil || *got.Gender != "F" {
				t.Errorf("expected replaced gender F, got %v", got.Gender)
			}
		})
	}
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: NewMemoryStore()}
	s := NewCachedStore(backing, cache.NewMemoryCache(time.Minute, time.Minute), 0)

	if err := s.SaveAll(ctx, sampleRecords()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.FindByID(ctx, 1); err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
	}
	if backing.finds != 1 {
		t.Errorf("expected 1 backing lookup, got %d", backing.finds)
	}

	if _, err := s.FindByID(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type countingStore struct {
	Store
	finds int
}

func (c *countingStore) FindByID(ctx context.Context, id int64) (*model.ClientRecord, error) {
	c.finds++
	return c.Store.FindByID(ctx, id)
}

func ids(records []model.ClientRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// ptr returns a pointer to v
func ptr[T any](v T) *T { return &v }
