package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// Catalog is the read surface the engine consults for price snapshots and
// advisory stock checks.
type Catalog interface {
	Lookup(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Engine holds the sale in progress. All mutations serialize on one lock so
// a scan-fed AddLine and an operator-driven RemoveLine can never interleave.
// State lives only in memory for the duration of one sale.
type Engine struct {
	mu           sync.Mutex
	catalog      Catalog
	lines        []Line
	saleDiscount *Discount
	now          func() time.Time
}

// NewEngine constructs an empty cart bound to a catalog.
func NewEngine(cat Catalog) *Engine {
	return &Engine{catalog: cat, now: time.Now}
}

// AddLine adds qty units of a product, merging into an existing line for the
// same product. The stock check here is advisory only; the binding check
// happens at commit time against live stock.
func (e *Engine) AddLine(ctx context.Context, productID uuid.UUID, qty int32) (Line, error) {
	if qty <= 0 {
		return Line{}, fmt.Errorf("%w: add quantity must be positive", ErrInvalidQuantity)
	}
	product, err := e.catalog.Lookup(ctx, productID)
	if err != nil {
		return Line{}, err
	}
	if !product.Active {
		return Line{}, catalog.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(productID)
	merged := qty
	if idx >= 0 {
		merged += e.lines[idx].Qty
	}
	if merged > product.Stock {
		return Line{}, catalog.ErrInsufficientStock
	}
	if idx >= 0 {
		e.lines[idx].Qty = merged
		e.countOp("merge")
		return e.lines[idx], nil
	}
	line := Line{
		ProductID: product.ID,
		Name:      product.Name,
		Barcode:   product.Barcode,
		TaxClass:  product.TaxClass,
		UnitPrice: product.UnitPrice,
		Qty:       qty,
		AddedAt:   e.now(),
	}
	e.lines = append(e.lines, line)
	e.countOp("add")
	return line, nil
}

// SetLineQuantity replaces a line's quantity. Zero removes the line;
// negative quantities are rejected.
func (e *Engine) SetLineQuantity(ctx context.Context, productID uuid.UUID, qty int32) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidQuantity)
	}
	if qty == 0 {
		e.RemoveLine(productID)
		return nil
	}
	product, err := e.catalog.Lookup(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.Stock {
		return catalog.ErrInsufficientStock
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	e.lines[idx].Qty = qty
	e.countOp("set_qty")
	return nil
}

// RemoveLine drops the line for a product. Removing an absent line is a
// no-op so repeated removals are safe.
func (e *Engine) RemoveLine(productID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(productID)
	if idx < 0 {
		return
	}
	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	e.countOp("remove")
}

// ApplyLineDiscount attaches a discount to an existing line.
func (e *Engine) ApplyLineDiscount(productID uuid.UUID, d Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	disc := d
	e.lines[idx].Discount = &disc
	e.countOp("line_discount")
	return nil
}

// ApplySaleDiscount attaches a sale-level discount.
func (e *Engine) ApplySaleDiscount(d Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	disc := d
	e.saleDiscount = &disc
	e.countOp("sale_discount")
	return nil
}

// Clear resets the cart to empty. Called on cancel and after a successful
// commit.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = nil
	e.saleDiscount = nil
	e.countOp("clear")
}

// Snapshot returns a deep copy of the cart for the calculator and the UI.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{Lines: make([]Line, len(e.lines))}
	copy(snap.Lines, e.lines)
	for i := range snap.Lines {
		if d := snap.Lines[i].Discount; d != nil {
			dup := *d
			snap.Lines[i].Discount = &dup
		}
	}
	if e.saleDiscount != nil {
		dup := *e.saleDiscount
		snap.SaleDiscount = &dup
	}
	return snap
}

// indexOf must be called with the lock held.
func (e *Engine) indexOf(productID uuid.UUID) int {
	for i := range e.lines {
		if e.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (e *Engine) countOp(op string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
}
