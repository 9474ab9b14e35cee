package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]Product

	barcodeLookups int
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[uuid.UUID]Product)}
}

func (f *fakeStore) put(p Product) Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) Lookup(_ context.Context, id uuid.UUID) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) LookupByBarcode(_ context.Context, code string) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barcodeLookups++
	for _, p := range f.products {
		if p.Barcode != nil && *p.Barcode == code && p.Active {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (f *fakeStore) DecrementStock(_ context.Context, id uuid.UUID, qty int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	f.products[id] = p
	return nil
}

func (f *fakeStore) Restock(_ context.Context, id uuid.UUID, qty int32) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Stock += qty
	f.products[id] = p
	return p, nil
}

func (f *fakeStore) Upsert(_ context.Context, p Product) (Product, error) {
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}
	return f.put(p), nil
}

func (f *fakeStore) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	f.products[id] = p
	return nil
}

func (f *fakeStore) List(_ context.Context, params ListParams) ([]Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		if !p.Active {
			continue
		}
		if params.Barcode != "" && (p.Barcode == nil || *p.Barcode != params.Barcode) {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) ListLowStock(_ context.Context) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Product, 0)
	for _, p := range f.products {
		if p.Active && p.LowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func barcode(code string) *string { return &code }

func TestLookupByBarcodeUsesCache(t *testing.T) {
	store := newFakeStore()
	cache, _ := testCache(t)
	svc, err := NewService(store, cache)
	require.NoError(t, err)

	store.put(Product{Name: "Espresso Beans", Barcode: barcode("4006381333931"), UnitPrice: 1250, TaxClass: TaxStandard, Stock: 10, Active: true})

	first, err := svc.LookupByBarcode(context.Background(), "4006381333931")
	require.NoError(t, err)
	second, err := svc.LookupByBarcode(context.Background(), "4006381333931")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, store.barcodeLookups, "second lookup should be served from cache")
}

func TestUpsertInvalidatesBarcodeCache(t *testing.T) {
	store := newFakeStore()
	cache, mr := testCache(t)
	svc, err := NewService(store, cache)
	require.NoError(t, err)

	p := store.put(Product{Name: "Milk 1L", Barcode: barcode("5901234123457"), UnitPrice: 189, TaxClass: TaxReduced, Stock: 4, Active: true})
	_, err = svc.LookupByBarcode(context.Background(), "5901234123457")
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:barcode:5901234123457"))

	p.UnitPrice = 199
	_, err = svc.Upsert(context.Background(), p)
	require.NoError(t, err)
	require.False(t, mr.Exists("catalog:barcode:5901234123457"), "upsert must evict the cached barcode entry")

	fresh, err := svc.LookupByBarcode(context.Background(), "5901234123457")
	require.NoError(t, err)
	require.EqualValues(t, 199, fresh.UnitPrice)
}

func TestDecrementStockBoundary(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, nil)
	require.NoError(t, err)

	p := store.put(Product{Name: "Sparkling Water", UnitPrice: 99, TaxClass: TaxStandard, Stock: 3, Active: true})

	require.NoError(t, svc.DecrementStock(context.Background(), p.ID, 3))
	got, err := svc.Lookup(context.Background(), p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.Stock)

	err = svc.DecrementStock(context.Background(), p.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	got, err = svc.Lookup(context.Background(), p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.Stock, "failed decrement must leave stock unchanged")
}

func TestUpsertValidation(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, nil)
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), Product{Name: "", UnitPrice: 100, TaxClass: TaxStandard})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Upsert(context.Background(), Product{Name: "Ghost", UnitPrice: -1, TaxClass: TaxStandard})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Upsert(context.Background(), Product{Name: "Ghost", UnitPrice: 1, TaxClass: TaxClass("LUXURY")})
	require.ErrorIs(t, err, ErrInvalidProduct)
}

func TestLowStockListing(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, nil)
	require.NoError(t, err)

	store.put(Product{Name: "Plenty", UnitPrice: 100, TaxClass: TaxStandard, Stock: 50, MinStock: 5, Active: true})
	low := store.put(Product{Name: "Scarce", UnitPrice: 100, TaxClass: TaxStandard, Stock: 2, MinStock: 5, Active: true})

	items, err := svc.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, low.ID, items[0].ID)
}
