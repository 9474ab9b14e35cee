package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrNotFound indicates the referenced product does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// ErrInsufficientStock indicates a decrement would drive stock negative.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// ErrInvalidProduct is returned when an upsert payload fails validation.
var ErrInvalidProduct = errors.New("catalog: invalid product")

// TaxClass categorises a product for tax computation.
type TaxClass string

// Known tax classes.
const (
	TaxStandard TaxClass = "STANDARD"
	TaxExempt   TaxClass = "EXEMPT"
	TaxReduced  TaxClass = "REDUCED"
)

// Valid reports whether the tax class is one of the known values.
func (c TaxClass) Valid() bool {
	switch c {
	case TaxStandard, TaxExempt, TaxReduced:
		return true
	}
	return false
}

// Product is a catalog entry with its live stock level.
type Product struct {
	ID         uuid.UUID    `json:"id"`
	Barcode    *string      `json:"barcode,omitempty"`
	Name       string       `json:"name"`
	UnitPrice  money.Amount `json:"unitPrice"`
	TaxClass   TaxClass     `json:"taxClass"`
	Stock      int32        `json:"stock"`
	MinStock   int32        `json:"minStock"`
	CategoryID *uuid.UUID   `json:"categoryId,omitempty"`
	Active     bool         `json:"active"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// LowStock reports whether the product is at or below its restock threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}
