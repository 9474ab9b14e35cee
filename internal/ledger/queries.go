package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

const saleColumns = `id, number, operator_id, currency, subtotal, discount, tax, grand_total, tax_breakdown, recorded_at`

// Queries runs ledger SQL against a pool or transaction. The ledger is
// append-only: there is no update or delete path.
type Queries struct {
	db db.DBTX
}

// New constructs ledger queries bound to the provided connection.
func New(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// WithTx rebinds the queries to a transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Append writes a sale and its lines. Meant to run inside the committer's
// transaction so the ledger row and the stock decrements land together.
func (q *Queries) Append(ctx context.Context, sale Sale) error {
	breakdown, err := json.Marshal(sale.TaxBreakdown)
	if err != nil {
		return fmt.Errorf("marshal tax breakdown: %w", err)
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO sales (id, number, operator_id, currency, subtotal, discount, tax, grand_total, tax_breakdown, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		db.UUID(sale.ID), sale.Number, db.UUIDPtr(sale.OperatorID), sale.Currency,
		sale.Subtotal, sale.Discount, sale.Tax, sale.GrandTotal, breakdown, sale.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	for i, line := range sale.Lines {
		_, err = q.db.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, barcode, tax_class, qty, unit_price, discount, line_total, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			db.UUID(sale.ID), db.UUID(line.ProductID), line.Name, db.Text(line.Barcode),
			string(line.TaxClass), line.Qty, line.UnitPrice, line.Discount, line.LineTotal, int32(i))
		if err != nil {
			return fmt.Errorf("insert sale item %d: %w", i, err)
		}
	}
	return nil
}

// NextNumber issues the next human-readable receipt number for a business
// day, formatted POS-YYYYMMDD-NNNN. The unique index on sales.number is the
// backstop for concurrent commits racing on the same counter.
func (q *Queries) NextNumber(ctx context.Context, day time.Time) (string, error) {
	prefix := "POS-" + day.UTC().Format("20060102") + "-"
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM sales WHERE number LIKE $1 || '%'`, prefix).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count sale numbers: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// GetByID loads a sale with its lines.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := q.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, db.UUID(id))
	sale, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}
	lines, err := q.loadLines(ctx, []uuid.UUID{sale.ID})
	if err != nil {
		return Sale{}, err
	}
	sale.Lines = lines[sale.ID]
	return sale, nil
}

// QueryParams bounds a ledger scan. From is inclusive, To exclusive. After
// resumes a prior scan.
type QueryParams struct {
	From  time.Time
	To    time.Time
	After *Cursor
	Limit int32
}

// Query returns sales recorded in [From, To) in recorded_at,id order. When
// a full page comes back it also returns the cursor to resume from.
func (q *Queries) Query(ctx context.Context, params QueryParams) ([]Sale, *Cursor, error) {
	if !params.To.After(params.From) {
		return nil, nil, ErrInvalidRange
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if params.After != nil {
		rows, err = q.db.Query(ctx, `
			SELECT `+saleColumns+` FROM sales
			WHERE recorded_at >= $1 AND recorded_at < $2
			  AND (recorded_at, id) > ($3, $4)
			ORDER BY recorded_at, id
			LIMIT $5`,
			params.From, params.To, params.After.RecordedAt, db.UUID(params.After.ID), params.Limit)
	} else {
		rows, err = q.db.Query(ctx, `
			SELECT `+saleColumns+` FROM sales
			WHERE recorded_at >= $1 AND recorded_at < $2
			ORDER BY recorded_at, id
			LIMIT $3`,
			params.From, params.To, params.Limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan sales: %w", err)
	}
	if len(sales) == 0 {
		return sales, nil, nil
	}

	ids := make([]uuid.UUID, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	lines, err := q.loadLines(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range sales {
		sales[i].Lines = lines[sales[i].ID]
	}

	var next *Cursor
	if int32(len(sales)) == params.Limit {
		last := sales[len(sales)-1]
		next = &Cursor{RecordedAt: last.RecordedAt, ID: last.ID}
	}
	return sales, next, nil
}

func (q *Queries) loadLines(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]SaleLine, error) {
	ids := make([]pgtype.UUID, len(saleIDs))
	for i, id := range saleIDs {
		ids[i] = db.UUID(id)
	}
	rows, err := q.db.Query(ctx, `
		SELECT sale_id, product_id, name, barcode, tax_class, qty, unit_price, discount, line_total
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]SaleLine, len(saleIDs))
	for rows.Next() {
		var (
			saleID    pgtype.UUID
			productID pgtype.UUID
			barcode   pgtype.Text
			taxClass  string
			line      SaleLine
		)
		if err := rows.Scan(&saleID, &productID, &line.Name, &barcode, &taxClass,
			&line.Qty, &line.UnitPrice, &line.Discount, &line.LineTotal); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		line.ProductID = db.FromUUID(productID)
		line.Barcode = db.TextPtr(barcode)
		line.TaxClass = catalog.TaxClass(taxClass)
		key := db.FromUUID(saleID)
		out[key] = append(out[key], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan sale items: %w", err)
	}
	return out, nil
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		sale      Sale
		id        pgtype.UUID
		operator  pgtype.UUID
		breakdown []byte
	)
	err := row.Scan(&id, &sale.Number, &operator, &sale.Currency,
		&sale.Subtotal, &sale.Discount, &sale.Tax, &sale.GrandTotal, &breakdown, &sale.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, fmt.Errorf("scan sale: %w", err)
	}
	sale.ID = db.FromUUID(id)
	if operator.Valid {
		oid := db.FromUUID(operator)
		sale.OperatorID = &oid
	}
	if len(breakdown) > 0 {
		var lines []pricing.TaxLine
		if err := json.Unmarshal(breakdown, &lines); err != nil {
			return Sale{}, fmt.Errorf("unmarshal tax breakdown: %w", err)
		}
		sale.TaxBreakdown = lines
	}
	return sale, nil
}
