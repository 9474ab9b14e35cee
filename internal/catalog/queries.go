package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/db"
)

const productColumns = `id, barcode, name, unit_price, tax_class, stock, min_stock, category_id, is_active, updated_at`

// Queries runs catalog SQL against a pool or transaction.
type Queries struct {
	db db.DBTX
}

// New constructs catalog queries bound to the provided connection.
func New(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// WithTx rebinds the queries to a transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Lookup loads a product by identifier.
func (q *Queries) Lookup(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, db.UUID(id))
	return scanProduct(row)
}

// LookupByBarcode loads an active product by barcode.
func (q *Queries) LookupByBarcode(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Product{}, ErrNotFound
	}
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1 AND is_active`, code)
	return scanProduct(row)
}

// DecrementStock applies an atomic conditional decrement. It is the single
// guard against overselling: the UPDATE only matches while enough stock
// remains, so concurrent decrements can never drive stock negative.
func (q *Queries) DecrementStock(ctx context.Context, id uuid.UUID, qty int32) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrement quantity must be positive", ErrInvalidProduct)
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		db.UUID(id), qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := q.Lookup(ctx, id); err != nil {
		return err
	}
	return ErrInsufficientStock
}

// Restock atomically increments stock and returns the updated product.
func (q *Queries) Restock(ctx context.Context, id uuid.UUID, qty int32) (Product, error) {
	if qty <= 0 {
		return Product{}, fmt.Errorf("%w: restock quantity must be positive", ErrInvalidProduct)
	}
	row := q.db.QueryRow(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1 RETURNING `+productColumns,
		db.UUID(id), qty)
	return scanProduct(row)
}

// Upsert inserts or replaces a product definition. Stock is set as given;
// concurrent decrements are safe because the write is a single statement.
func (q *Queries) Upsert(ctx context.Context, p Product) (Product, error) {
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (id, barcode, name, unit_price, tax_class, stock, min_stock, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			barcode = EXCLUDED.barcode,
			name = EXCLUDED.name,
			unit_price = EXCLUDED.unit_price,
			tax_class = EXCLUDED.tax_class,
			stock = EXCLUDED.stock,
			min_stock = EXCLUDED.min_stock,
			category_id = EXCLUDED.category_id,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING `+productColumns,
		db.UUID(p.ID), db.Text(p.Barcode), p.Name, p.UnitPrice, string(p.TaxClass),
		p.Stock, p.MinStock, db.UUIDPtr(p.CategoryID), p.Active)
	return scanProduct(row)
}

// Deactivate soft-deletes a product so it no longer resolves at scan time.
func (q *Queries) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = now() WHERE id = $1`, db.UUID(id))
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListParams filters the product listing.
type ListParams struct {
	Barcode string
	Limit   int32
	Offset  int32
}

// List returns active products ordered by name, plus the unfiltered total.
func (q *Queries) List(ctx context.Context, params ListParams) ([]Product, int64, error) {
	barcode := strings.TrimSpace(params.Barcode)
	var total int64
	if err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE is_active AND ($1 = '' OR barcode = $1)`,
		barcode).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE is_active AND ($1 = '' OR barcode = $1)
		 ORDER BY name, id LIMIT $2 OFFSET $3`,
		barcode, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListLowStock returns active products at or below their restock threshold.
func (q *Queries) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active AND stock <= min_stock ORDER BY stock, name`)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidProduct)
	}
	if p.Stock < 0 || p.MinStock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	if !p.TaxClass.Valid() {
		return fmt.Errorf("%w: unknown tax class %q", ErrInvalidProduct, p.TaxClass)
	}
	return nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		id       pgtype.UUID
		barcode  pgtype.Text
		taxClass string
		category pgtype.UUID
	)
	err := row.Scan(&id, &barcode, &p.Name, &p.UnitPrice, &taxClass, &p.Stock, &p.MinStock, &category, &p.Active, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.ID = db.FromUUID(id)
	p.Barcode = db.TextPtr(barcode)
	p.TaxClass = TaxClass(taxClass)
	if category.Valid {
		cid := db.FromUUID(category)
		p.CategoryID = &cid
	}
	return p, nil
}
