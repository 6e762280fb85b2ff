package store

import (
	"context"
	"farmstock/domain"
	"strconv"
	"sync"
	"testing"
)

// seedKitProduct returns a product with two base variants and one kit over them.
func seedKitProduct(id string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Drip Line " + id,
		Category: "Irrigation",
		Variants: []domain.Variant{
			{ID: id + "-tape", Stock: 500, Unit: "piece", Attributes: map[string]string{"Part": "Tape"}},
			{ID: id + "-emitter", Stock: 450, Unit: "piece", Attributes: map[string]string{"Part": "Emitter"}},
			{ID: id + "-kit", Components: []domain.Component{
				{VariantID: id + "-tape", Quantity: 1},
				{VariantID: id + "-emitter", Quantity: 1},
			}},
		},
	}
}

func TestCreateValidation_TableDriven(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	cases := []struct {
		name    string
		product domain.Product
		wantErr bool
	}{
		{"empty id", domain.Product{ID: "", Name: "A"}, true},
		{"empty name", domain.Product{ID: "x1", Name: ""}, true},
		{"negative stock", domain.Product{ID: "x2", Name: "A", Variants: []domain.Variant{{ID: "v2", Stock: -1}}}, true},
		{"bad component qty", domain.Product{ID: "x3", Name: "A", Variants: []domain.Variant{
			{ID: "v3", Components: []domain.Component{{VariantID: "v3b", Quantity: -5}}},
		}}, true},
		{"valid without variants", domain.Product{ID: "x4", Name: "A"}, false},
		{"valid kit", seedKitProduct("x5"), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := s.Create(ctx, tc.product)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for case %s", tc.name)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreate_DuplicateProductAndVariantIDs(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, seedKitProduct("p1")); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}

	t.Run("same product id", func(t *testing.T) {
		err := s.Create(ctx, domain.Product{ID: "p1", Name: "Other"})
		if !domain.IsDuplicateProductError(err) {
			t.Fatalf("expected DuplicateProductError, got %v", err)
		}
	})

	t.Run("variant id owned elsewhere", func(t *testing.T) {
		err := s.Create(ctx, domain.Product{ID: "p2", Name: "Thief", Variants: []domain.Variant{{ID: "p1-tape"}}})
		if !domain.IsDuplicateProductError(err) {
			t.Fatalf("expected DuplicateProductError, got %v", err)
		}
	})

	t.Run("update cannot steal variant id", func(t *testing.T) {
		if err := s.Create(ctx, domain.Product{ID: "p3", Name: "Clean"}); err != nil {
			t.Fatalf("setup create failed: %v", err)
		}
		err := s.Update(ctx, "p3", domain.Product{Name: "Clean", Variants: []domain.Variant{{ID: "p1-kit"}}})
		if !domain.IsDuplicateProductError(err) {
			t.Fatalf("expected DuplicateProductError, got %v", err)
		}
	})

	t.Run("deleted product frees variant ids", func(t *testing.T) {
		if err := s.Delete(ctx, "p1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := s.Create(ctx, domain.Product{ID: "p4", Name: "Reuse", Variants: []domain.Variant{{ID: "p1-tape"}}}); err != nil {
			t.Fatalf("expected variant id to be reusable, got %v", err)
		}
	})
}

func TestGetUpdateDelete_NotFoundAndInvalid(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	t.Run("get not found", func(t *testing.T) {
		_, err := s.Get(ctx, "no-such")
		if !domain.IsProductNotFoundError(err) {
			t.Fatalf("expected ProductNotFoundError, got %v", err)
		}
	})

	t.Run("update not found", func(t *testing.T) {
		err := s.Update(ctx, "no-such", domain.Product{Name: "A"})
		if !domain.IsProductNotFoundError(err) {
			t.Fatalf("expected ProductNotFoundError, got %v", err)
		}
	})

	t.Run("delete not found", func(t *testing.T) {
		err := s.Delete(ctx, "no-such")
		if !domain.IsProductNotFoundError(err) {
			t.Fatalf("expected ProductNotFoundError, got %v", err)
		}
	})

	if err := s.Create(ctx, domain.Product{ID: "u1", Name: "V"}); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}
	t.Run("update invalid", func(t *testing.T) {
		if err := s.Update(ctx, "u1", domain.Product{Name: ""}); !domain.IsInvalidProductError(err) {
			t.Fatalf("expected InvalidProductError, got %v", err)
		}
	})
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	if err := s.Create(ctx, seedKitProduct("c1")); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}

	got, _ := s.Get(ctx, "c1")
	got.Variants[0].Stock = 0
	got.Variants[0].Attributes["Part"] = "changed"

	again, _ := s.Get(ctx, "c1")
	if again.Variants[0].Stock != 500 || again.Variants[0].Attributes["Part"] != "Tape" {
		t.Fatalf("store leaked internal state: %+v", again.Variants[0])
	}
}

func TestListSortingAndFiltering(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	_ = s.Create(ctx, domain.Product{ID: "a", Name: "Alpha Seed", Description: "hybrid maize", Category: "C1",
		Variants: []domain.Variant{{ID: "a1"}, {ID: "a2"}}})
	_ = s.Create(ctx, domain.Product{ID: "b", Name: "Beta Feed", Category: "C2",
		Variants: []domain.Variant{{ID: "b1"}}})
	_ = s.Create(ctx, domain.Product{ID: "c", Name: "Gamma Seed", Category: "C1",
		Variants: []domain.Variant{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}})

	t.Run("filter by category", func(t *testing.T) {
		out, err := s.List(ctx, domain.ListFilter{Category: "C1"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2, got %d", len(out))
		}
	})

	t.Run("search name and description", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{Search: "SEED"})
		if len(out) != 2 {
			t.Fatalf("expected 2 seed products, got %d", len(out))
		}
		out, _ = s.List(ctx, domain.ListFilter{Search: "maize"})
		if len(out) != 1 || out[0].ID != "a" {
			t.Fatalf("expected description match on a, got %+v", out)
		}
	})

	t.Run("sort by variants desc", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{SortBy: "variants", Order: "desc"})
		if len(out) != 3 || out[0].ID != "c" || out[2].ID != "b" {
			t.Fatalf("unexpected sort order by variants desc: %v", ids(out))
		}
	})

	t.Run("sort by name asc", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{SortBy: "name"})
		if len(out) != 3 || out[0].Name != "Alpha Seed" || out[2].Name != "Gamma Seed" {
			t.Fatalf("unexpected sort order by name: %v", ids(out))
		}
	})

	t.Run("default order is by id", func(t *testing.T) {
		out, _ := s.Snapshot(ctx)
		if got := ids(out); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
			t.Fatalf("snapshot not ordered by id: %v", got)
		}
	})
}

func ids(ps []domain.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *InMemoryStore {
		t.Helper()
		s := NewInMemoryStore()
		if err := s.Create(ctx, seedKitProduct("p")); err != nil {
			t.Fatalf("setup create failed: %v", err)
		}
		return s
	}
	stockOf := func(t *testing.T, s *InMemoryStore, variantID string) int {
		t.Helper()
		p, err := s.Get(ctx, "p")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		v, ok := p.FindVariant(variantID)
		if !ok {
			t.Fatalf("variant %s missing", variantID)
		}
		return v.Stock
	}

	t.Run("applies all deltas", func(t *testing.T) {
		s := newStore(t)
		if err := s.AdjustStock(ctx, map[string]int{"p-tape": -50, "p-emitter": 25}); err != nil {
			t.Fatalf("adjust failed: %v", err)
		}
		if got := stockOf(t, s, "p-tape"); got != 450 {
			t.Fatalf("expected tape 450, got %d", got)
		}
		if got := stockOf(t, s, "p-emitter"); got != 475 {
			t.Fatalf("expected emitter 475, got %d", got)
		}
	})

	t.Run("insufficient stock applies nothing", func(t *testing.T) {
		s := newStore(t)
		err := s.AdjustStock(ctx, map[string]int{"p-tape": -10, "p-emitter": -451})
		if !domain.IsInsufficientStockError(err) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if got := stockOf(t, s, "p-tape"); got != 500 {
			t.Fatalf("partial adjustment applied: tape=%d", got)
		}
	})

	t.Run("unknown variant", func(t *testing.T) {
		s := newStore(t)
		err := s.AdjustStock(ctx, map[string]int{"p-tape": 1, "nope": 1})
		if !domain.IsVariantNotFoundError(err) {
			t.Fatalf("expected VariantNotFoundError, got %v", err)
		}
		if got := stockOf(t, s, "p-tape"); got != 500 {
			t.Fatalf("partial adjustment applied: tape=%d", got)
		}
	})

	t.Run("kit target rejected", func(t *testing.T) {
		s := newStore(t)
		err := s.AdjustStock(ctx, map[string]int{"p-kit": 5})
		if !domain.IsInvalidProductError(err) {
			t.Fatalf("expected InvalidProductError, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.AdjustStock(cctx, map[string]int{"p-tape": 1}); err == nil {
			t.Fatalf("expected context error")
		}
	})
}

func TestBulkImport_ErrorsAndCancellation(t *testing.T) {
	s := NewInMemoryStore()

	products := []domain.Product{
		{ID: "d1", Name: "A"},
		{ID: "d1", Name: "A"},
	}
	ctx := context.Background()
	err := s.BulkImport(ctx, products)
	if !domain.IsDuplicateProductError(err) {
		t.Fatalf("expected DuplicateProductError due to duplicate IDs, got %v", err)
	}

	err = s.BulkImport(ctx, []domain.Product{
		{ID: "i1", Name: ""},
		{ID: "i2", Name: "ok"},
	})
	if !domain.IsInvalidProductError(err) {
		t.Fatalf("expected InvalidProductError in collected errors, got %v", err)
	}
	if _, err := s.Get(ctx, "i2"); err != nil {
		t.Fatalf("valid product should still be imported: %v", err)
	}

	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.BulkImport(canceledCtx, []domain.Product{{ID: "x1", Name: "N"}}); err == nil {
		t.Fatalf("expected context error on canceled context")
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	if err := s.Create(ctx, seedKitProduct("shared")); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}
	var wg sync.WaitGroup

	n := 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		id := "p-conc-" + strconv.Itoa(i)
		go func(id string) {
			defer wg.Done()
			_ = s.Create(ctx, domain.Product{ID: id, Name: "X", Category: "C", Variants: []domain.Variant{{ID: id + "-v", Stock: 1}}})
			_, _ = s.Get(ctx, id)
			_ = s.AdjustStock(ctx, map[string]int{"shared-tape": -1})
			_, _ = s.Snapshot(ctx)
		}(id)
	}
	wg.Wait()

	out, err := s.List(ctx, domain.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out) != n+1 {
		t.Fatalf("expected %d products, got %d", n+1, len(out))
	}
	p, _ := s.Get(ctx, "shared")
	if p.Variants[0].Stock != 500-n {
		t.Fatalf("expected tape stock %d, got %d", 500-n, p.Variants[0].Stock)
	}
}

func BenchmarkInMemoryStore_Create(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := NewInMemoryStore()
		_ = s.Create(context.Background(), seedKitProduct("b-create-"+strconv.Itoa(i)))
	}
}

func BenchmarkInMemoryStore_Snapshot(b *testing.B) {
	s := NewInMemoryStore()
	for i := 0; i < 1000; i++ {
		_ = s.Create(context.Background(), seedKitProduct("b-snap-"+strconv.Itoa(i)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Snapshot(context.Background())
	}
}
