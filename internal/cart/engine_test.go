package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/money"
)

type fakeCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (f *fakeCatalog) Lookup(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func testProduct(name string, price money.Amount, stock int32) catalog.Product {
	return catalog.Product{
		ID:        uuid.New(),
		Name:      name,
		UnitPrice: price,
		TaxClass:  catalog.TaxStandard,
		Stock:     stock,
		Active:    true,
	}
}

func testEngine(products ...catalog.Product) (*Engine, *fakeCatalog) {
	fc := &fakeCatalog{products: map[uuid.UUID]catalog.Product{}}
	for _, p := range products {
		fc.products[p.ID] = p
	}
	e := NewEngine(fc)
	e.now = func() time.Time { return time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC) }
	return e, fc
}

func TestAddLineMergesSameProduct(t *testing.T) {
	p := testProduct("Kopi Sachet", 1500, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 3)
	require.NoError(t, err)
	line, err := e.AddLine(ctx, p.ID, 2)
	require.NoError(t, err)

	require.Equal(t, int32(5), line.Qty)
	snap := e.Snapshot()
	require.Len(t, snap.Lines, 1)
	require.Equal(t, int32(5), snap.Lines[0].Qty)
	require.Equal(t, int32(5), snap.TotalQty())
}

func TestAddLineSnapshotsPriceAtAddTime(t *testing.T) {
	p := testProduct("Teh Botol", 4000, 20)
	e, fc := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 1)
	require.NoError(t, err)

	// A catalog price change after the add must not retroactively reprice
	// the line.
	p.UnitPrice = 4500
	fc.products[p.ID] = p

	snap := e.Snapshot()
	require.Equal(t, money.Amount(4000), snap.Lines[0].UnitPrice)
}

func TestAddLineRejectsBadInput(t *testing.T) {
	p := testProduct("Gula", 12000, 5)
	e, fc := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = e.AddLine(ctx, p.ID, -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = e.AddLine(ctx, uuid.New(), 1)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	inactive := testProduct("Discontinued", 100, 5)
	inactive.Active = false
	fc.products[inactive.ID] = inactive
	_, err = e.AddLine(ctx, inactive.ID, 1)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAddLineMergedQuantityRespectsStock(t *testing.T) {
	p := testProduct("Mie Instan", 3500, 5)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 4)
	require.NoError(t, err)
	_, err = e.AddLine(ctx, p.ID, 2)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	// The failed add leaves the existing line untouched.
	snap := e.Snapshot()
	require.Equal(t, int32(4), snap.Lines[0].Qty)
}

func TestSetLineQuantity(t *testing.T) {
	p := testProduct("Sabun", 5000, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 2)
	require.NoError(t, err)

	require.NoError(t, e.SetLineQuantity(ctx, p.ID, 7))
	require.Equal(t, int32(7), e.Snapshot().Lines[0].Qty)

	err = e.SetLineQuantity(ctx, p.ID, -2)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = e.SetLineQuantity(ctx, p.ID, 11)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	// Zero removes the line, and removing again stays a no-op.
	require.NoError(t, e.SetLineQuantity(ctx, p.ID, 0))
	require.True(t, e.Snapshot().Empty())
	require.NoError(t, e.SetLineQuantity(ctx, p.ID, 0))

	err = e.SetLineQuantity(ctx, p.ID, 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveLineIdempotent(t *testing.T) {
	p := testProduct("Rokok", 25000, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 1)
	require.NoError(t, err)

	e.RemoveLine(p.ID)
	require.True(t, e.Snapshot().Empty())
	e.RemoveLine(p.ID)
	e.RemoveLine(uuid.New())
}

func TestApplyLineDiscount(t *testing.T) {
	p := testProduct("Beras 5kg", 65000, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 1)
	require.NoError(t, err)

	err = e.ApplyLineDiscount(p.ID, Discount{Kind: DiscountPercent, PercentBps: 1000})
	require.NoError(t, err)
	snap := e.Snapshot()
	require.NotNil(t, snap.Lines[0].Discount)
	require.Equal(t, int32(1000), snap.Lines[0].Discount.PercentBps)

	err = e.ApplyLineDiscount(uuid.New(), Discount{Kind: DiscountFixed, Amount: 500})
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestDiscountValidation(t *testing.T) {
	e, _ := testEngine()

	cases := []struct {
		name string
		d    Discount
	}{
		{"percent over 100", Discount{Kind: DiscountPercent, PercentBps: 10001}},
		{"percent zero", Discount{Kind: DiscountPercent, PercentBps: 0}},
		{"percent negative", Discount{Kind: DiscountPercent, PercentBps: -500}},
		{"fixed zero", Discount{Kind: DiscountFixed, Amount: 0}},
		{"fixed negative", Discount{Kind: DiscountFixed, Amount: -100}},
		{"percent carries amount", Discount{Kind: DiscountPercent, PercentBps: 500, Amount: 100}},
		{"fixed carries percent", Discount{Kind: DiscountFixed, Amount: 100, PercentBps: 500}},
		{"unknown kind", Discount{Kind: "bogus", Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.ApplySaleDiscount(tc.d)
			require.ErrorIs(t, err, ErrInvalidDiscount)
		})
	}

	require.NoError(t, e.ApplySaleDiscount(Discount{Kind: DiscountPercent, PercentBps: 10000}))
}

func TestClearResetsEverything(t *testing.T) {
	p := testProduct("Minyak Goreng", 18000, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, e.ApplySaleDiscount(Discount{Kind: DiscountFixed, Amount: 1000}))

	e.Clear()
	snap := e.Snapshot()
	require.True(t, snap.Empty())
	require.Nil(t, snap.SaleDiscount)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p := testProduct("Susu UHT", 6500, 10)
	e, _ := testEngine(p)
	ctx := context.Background()

	_, err := e.AddLine(ctx, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, e.ApplyLineDiscount(p.ID, Discount{Kind: DiscountFixed, Amount: 500}))
	require.NoError(t, e.ApplySaleDiscount(Discount{Kind: DiscountPercent, PercentBps: 250}))

	snap := e.Snapshot()
	snap.Lines[0].Qty = 99
	snap.Lines[0].Discount.Amount = 1
	snap.SaleDiscount.PercentBps = 9999

	fresh := e.Snapshot()
	require.Equal(t, int32(2), fresh.Lines[0].Qty)
	require.Equal(t, money.Amount(500), fresh.Lines[0].Discount.Amount)
	require.Equal(t, int32(250), fresh.SaleDiscount.PercentBps)
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	p := testProduct("Air Mineral", 3000, 1000)
	e, _ := testEngine(p)
	ctx := context.Background()

	const workers = 8
	const addsEach = 25
	errs := make(chan error, workers*addsEach)
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for j := 0; j < addsEach; j++ {
				if _, err := e.AddLine(ctx, p.ID, 1); err != nil &&
					!errors.Is(err, catalog.ErrInsufficientStock) {
					errs <- err
				}
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected add error: %v", err)
	}

	snap := e.Snapshot()
	require.Len(t, snap.Lines, 1)
	require.Equal(t, int32(workers*addsEach), snap.Lines[0].Qty)
}
