package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the referenced sale does not exist.
var ErrNotFound = errors.New("ledger: sale not found")

// ErrInvalidRange indicates a query window where the end precedes the start.
var ErrInvalidRange = errors.New("ledger: invalid date range")

// ErrBadCursor indicates an unparseable pagination cursor.
var ErrBadCursor = errors.New("ledger: invalid cursor")

// SaleLine is the immutable record of one sold line. Name, barcode and
// price are snapshots taken at commit time; later catalog edits never
// rewrite history.
type SaleLine struct {
	ProductID uuid.UUID        `json:"productId"`
	Name      string           `json:"name"`
	Barcode   *string          `json:"barcode,omitempty"`
	TaxClass  catalog.TaxClass `json:"taxClass"`
	Qty       int32            `json:"qty"`
	UnitPrice money.Amount     `json:"unitPrice"`
	Discount  money.Amount     `json:"discount"`
	LineTotal money.Amount     `json:"lineTotal"`
}

// Sale is one committed transaction in the ledger.
type Sale struct {
	ID           uuid.UUID         `json:"id"`
	Number       string            `json:"number"`
	OperatorID   *uuid.UUID        `json:"operatorId,omitempty"`
	Currency     string            `json:"currency"`
	Subtotal     money.Amount      `json:"subtotal"`
	Discount     money.Amount      `json:"discount"`
	Tax          money.Amount      `json:"tax"`
	GrandTotal   money.Amount      `json:"grandTotal"`
	TaxBreakdown []pricing.TaxLine `json:"taxBreakdown"`
	Lines        []SaleLine        `json:"lines"`
	RecordedAt   time.Time         `json:"recordedAt"`
}
