package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/ledger"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrEmptyCart rejects a commit attempt against an empty cart before any
// storage work starts.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// State tracks a commit attempt through its lifecycle.
type State string

// Commit states. A commit either reaches Committed or falls to Aborted;
// there is no partial outcome.
const (
	StatePending    State = "PENDING"
	StateValidating State = "VALIDATING"
	StateApplying   State = "APPLYING"
	StateCommitted  State = "COMMITTED"
	StateAborted    State = "ABORTED"
)

// CatalogStore is the slice of the catalog the committer touches inside the
// transaction.
type CatalogStore interface {
	DecrementStock(ctx context.Context, id uuid.UUID, qty int32) error
	Lookup(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// LedgerStore is the slice of the ledger the committer touches inside the
// transaction.
type LedgerStore interface {
	NextNumber(ctx context.Context, day time.Time) (string, error)
	Append(ctx context.Context, sale ledger.Sale) error
}

// TxFunc runs fn with catalog and ledger stores bound to one transaction.
// When fn returns an error the transaction rolls back and nothing fn did is
// visible.
type TxFunc func(ctx context.Context, fn func(cat CatalogStore, led LedgerStore) error) error

// PgxTx returns the production TxFunc backed by a pgx pool.
func PgxTx(pool *pgxpool.Pool) TxFunc {
	return func(ctx context.Context, fn func(cat CatalogStore, led LedgerStore) error) error {
		tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin commit tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()
		if err := fn(catalog.New(tx), ledger.New(tx)); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
}

// Result is the outcome of a commit attempt.
type Result struct {
	State  State          `json:"state"`
	Sale   ledger.Sale    `json:"sale"`
	Totals pricing.Totals `json:"totals"`
}

// Committer turns a cart snapshot into a committed sale: every stock
// decrement and the ledger row land in one transaction or none do.
type Committer struct {
	InTx     TxFunc
	Rates    pricing.Rates
	Currency string
	Events   *events.Bus
	Log      zerolog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewCommitter wires a committer with real clock and id generation.
func NewCommitter(inTx TxFunc, rates pricing.Rates, currency string, bus *events.Bus, log zerolog.Logger) *Committer {
	return &Committer{
		InTx:     inTx,
		Rates:    rates,
		Currency: currency,
		Events:   bus,
		Log:      log,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Commit validates and applies a snapshot. The snapshot is treated as
// immutable input: prices and totals come from it, never from live catalog
// reads, so a concurrent price change cannot alter the sale being committed.
func (c *Committer) Commit(ctx context.Context, snap cart.Snapshot, operatorID *uuid.UUID) (Result, error) {
	state := StateValidating
	if snap.Empty() {
		c.finish(StateAborted, 0)
		return Result{State: StateAborted}, ErrEmptyCart
	}
	totals := pricing.Compute(snap, c.Rates)

	now := c.now().UTC()
	sale := ledger.Sale{
		ID:           c.newID(),
		OperatorID:   operatorID,
		Currency:     c.Currency,
		Subtotal:     totals.Subtotal,
		Discount:     totals.Discount,
		Tax:          totals.Tax,
		GrandTotal:   totals.GrandTotal,
		TaxBreakdown: totals.TaxBreakdown,
		RecordedAt:   now,
	}
	sale.Lines = make([]ledger.SaleLine, 0, len(totals.Lines))
	for i, lt := range totals.Lines {
		sale.Lines = append(sale.Lines, ledger.SaleLine{
			ProductID: lt.ProductID,
			Name:      lt.Name,
			Barcode:   snap.Lines[i].Barcode,
			TaxClass:  lt.TaxClass,
			Qty:       lt.Qty,
			UnitPrice: lt.UnitPrice,
			Discount:  lt.Discount,
			LineTotal: lt.Net,
		})
	}

	state = StateApplying
	var lowStock []catalog.Product
	err := c.InTx(ctx, func(cat CatalogStore, led LedgerStore) error {
		for _, lt := range totals.Lines {
			if err := cat.DecrementStock(ctx, lt.ProductID, lt.Qty); err != nil {
				return fmt.Errorf("decrement %s: %w", lt.ProductID, err)
			}
			product, err := cat.Lookup(ctx, lt.ProductID)
			if err != nil {
				return fmt.Errorf("reload %s: %w", lt.ProductID, err)
			}
			if product.LowStock() {
				lowStock = append(lowStock, product)
			}
		}
		number, err := led.NextNumber(ctx, now)
		if err != nil {
			return err
		}
		sale.Number = number
		return led.Append(ctx, sale)
	})
	if err != nil {
		c.finish(StateAborted, 0)
		c.Log.Warn().Err(err).Str("state", string(state)).Msg("sale aborted")
		return Result{State: StateAborted}, err
	}

	c.finish(StateCommitted, sale.GrandTotal)
	c.Log.Info().
		Str("sale_id", sale.ID.String()).
		Str("number", sale.Number).
		Int64("grand_total", sale.GrandTotal).
		Msg("sale committed")
	c.emit(ctx, sale, lowStock)

	return Result{State: StateCommitted, Sale: sale, Totals: totals}, nil
}

func (c *Committer) finish(state State, grandTotal int64) {
	if obs.SalesCommittedTotal == nil {
		return
	}
	switch state {
	case StateCommitted:
		obs.SalesCommittedTotal.WithLabelValues("committed").Inc()
		obs.SaleTotalAmount.Observe(float64(grandTotal))
	case StateAborted:
		obs.SalesCommittedTotal.WithLabelValues("aborted").Inc()
	}
}

// emit publishes post-commit events. The sale is already durable; event
// failures are logged, not surfaced.
func (c *Committer) emit(ctx context.Context, sale ledger.Sale, lowStock []catalog.Product) {
	if c.Events == nil {
		return
	}
	if _, err := c.Events.Emit(ctx, events.TopicSaleCommitted, sale.ID, map[string]any{
		"saleId":     sale.ID.String(),
		"number":     sale.Number,
		"grandTotal": sale.GrandTotal,
		"lines":      len(sale.Lines),
	}); err != nil {
		c.Log.Warn().Err(err).Msg("emit sale.committed")
	}
	for _, p := range lowStock {
		if _, err := c.Events.Emit(ctx, events.TopicStockLow, p.ID, map[string]any{
			"productId": p.ID.String(),
			"name":      p.Name,
			"stock":     p.Stock,
			"minStock":  p.MinStock,
		}); err != nil {
			c.Log.Warn().Err(err).Msg("emit stock.low")
		}
	}
}
