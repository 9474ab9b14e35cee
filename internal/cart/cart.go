package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrInvalidQuantity is returned for non-positive add quantities or negative
// set quantities.
var ErrInvalidQuantity = errors.New("cart: invalid quantity")

// ErrInvalidDiscount is returned for discounts exceeding 100% or otherwise
// malformed discount payloads.
var ErrInvalidDiscount = errors.New("cart: invalid discount")

// ErrLineNotFound is returned when an operation references a product with no
// line in the cart.
var ErrLineNotFound = errors.New("cart: line not found")

// DiscountKind selects how a discount is computed.
type DiscountKind string

// Supported discount kinds. A discount is either a percentage (basis points)
// or a fixed amount in minor units, never both.
const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Discount describes a per-line or sale-level price reduction.
type Discount struct {
	Kind       DiscountKind `json:"kind"`
	PercentBps int32        `json:"percentBps,omitempty"`
	Amount     money.Amount `json:"amount,omitempty"`
}

// Validate checks the discount is well formed and does not exceed 100%.
func (d Discount) Validate() error {
	switch d.Kind {
	case DiscountPercent:
		if d.Amount != 0 {
			return fmt.Errorf("%w: percent discount must not carry a fixed amount", ErrInvalidDiscount)
		}
		if d.PercentBps <= 0 || d.PercentBps > 10000 {
			return fmt.Errorf("%w: percent must be within (0, 100%%]", ErrInvalidDiscount)
		}
	case DiscountFixed:
		if d.PercentBps != 0 {
			return fmt.Errorf("%w: fixed discount must not carry a percentage", ErrInvalidDiscount)
		}
		if d.Amount <= 0 {
			return fmt.Errorf("%w: fixed amount must be positive", ErrInvalidDiscount)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDiscount, d.Kind)
	}
	return nil
}

// AmountOff computes the discount against a base amount, capped at the base.
func (d Discount) AmountOff(base money.Amount) money.Amount {
	var off money.Amount
	switch d.Kind {
	case DiscountPercent:
		off = money.ApplyBps(base, d.PercentBps)
	case DiscountFixed:
		off = d.Amount
	}
	if off > base {
		off = base
	}
	if off < 0 {
		off = 0
	}
	return off
}

// Line is one cart entry. Unit price and tax class are snapshots captured at
// add time, insulating the sale in progress from catalog edits.
type Line struct {
	ProductID uuid.UUID         `json:"productId"`
	Name      string            `json:"name"`
	Barcode   *string           `json:"barcode,omitempty"`
	TaxClass  catalog.TaxClass  `json:"taxClass"`
	UnitPrice money.Amount      `json:"unitPrice"`
	Qty       int32             `json:"qty"`
	Discount  *Discount         `json:"discount,omitempty"`
	AddedAt   time.Time         `json:"addedAt"`
}

// Snapshot is a read-only copy of the cart for the calculator and the UI.
// Line order is insertion order; receipts render it as-is.
type Snapshot struct {
	Lines        []Line    `json:"lines"`
	SaleDiscount *Discount `json:"saleDiscount,omitempty"`
}

// Empty reports whether the snapshot carries no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// TotalQty sums the quantities across all lines.
func (s Snapshot) TotalQty() int32 {
	var total int32
	for _, ln := range s.Lines {
		total += ln.Qty
	}
	return total
}
