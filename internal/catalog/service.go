package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/obs"
)

// Store is the persistence surface the service orchestrates. *Queries is the
// production implementation; tests substitute fakes.
type Store interface {
	Lookup(ctx context.Context, id uuid.UUID) (Product, error)
	LookupByBarcode(ctx context.Context, code string) (Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int32) error
	Restock(ctx context.Context, id uuid.UUID, qty int32) (Product, error)
	Upsert(ctx context.Context, p Product) (Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params ListParams) ([]Product, int64, error)
	ListLowStock(ctx context.Context) ([]Product, error)
}

// Service fronts the catalog store with a barcode lookup cache.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a Service instance.
func NewService(store Store, cache *Cache) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: store, cache: cache}, nil
}

// Lookup loads a product by identifier straight from the store. Stock levels
// must never be served stale by id, so this path bypasses the cache.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.store.Lookup(ctx, id)
}

// LookupByBarcode resolves a barcode through the read-through cache. The
// cached entry carries attributes only; the live stock check happens at
// commit time, so a short stale window here is acceptable.
func (s *Service) LookupByBarcode(ctx context.Context, code string) (Product, error) {
	key := barcodeCacheKey(code)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.store.LookupByBarcode(ctx, code)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, product)
	return product, nil
}

// DecrementStock applies an atomic conditional decrement and invalidates the
// barcode cache entry.
func (s *Service) DecrementStock(ctx context.Context, id uuid.UUID, qty int32) error {
	product, err := s.store.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DecrementStock(ctx, id, qty); err != nil {
		if errors.Is(err, ErrInsufficientStock) && obs.StockDecrementConflicts != nil {
			obs.StockDecrementConflicts.Inc()
		}
		return err
	}
	s.invalidate(ctx, product)
	return nil
}

// Restock increments stock and invalidates the cache entry.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, qty int32) (Product, error) {
	product, err := s.store.Restock(ctx, id, qty)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, product)
	return product, nil
}

// Upsert writes a product definition and invalidates its cache entry.
func (s *Service) Upsert(ctx context.Context, p Product) (Product, error) {
	product, err := s.store.Upsert(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, product)
	return product, nil
}

// Deactivate soft-deletes a product and drops it from the cache.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	product, err := s.store.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, product)
	return nil
}

// List returns a page of active products.
func (s *Service) List(ctx context.Context, params ListParams) ([]Product, int64, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.store.List(ctx, params)
}

// ListLowStock returns products at or below their restock threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]Product, error) {
	return s.store.ListLowStock(ctx)
}

func (s *Service) invalidate(ctx context.Context, product Product) {
	if product.Barcode == nil || *product.Barcode == "" {
		return
	}
	// Eviction failure is tolerable: entries expire by TTL.
	_ = s.cache.Delete(ctx, barcodeCacheKey(*product.Barcode))
}
