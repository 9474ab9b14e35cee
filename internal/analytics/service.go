package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/money"
)

// DailySummary aggregates one business day of committed sales.
type DailySummary struct {
	Day        time.Time    `json:"day"`
	Sales      int64        `json:"sales"`
	Gross      money.Amount `json:"gross"`
	Discount   money.Amount `json:"discount"`
	Tax        money.Amount `json:"tax"`
	GrandTotal money.Amount `json:"grandTotal"`
}

// TopProduct ranks a product by units sold across the ledger.
type TopProduct struct {
	ProductID uuid.UUID    `json:"productId"`
	Name      string       `json:"name"`
	QtySold   int64        `json:"qtySold"`
	Revenue   money.Amount `json:"revenue"`
}

// Querier defines the database access required for reporting.
type Querier interface {
	SalesRange(ctx context.Context, from, to time.Time) ([]DailySummary, error)
	TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error)
}

// Service provides cached reporting over the sales ledger. The reports read
// committed history only, so short cache TTLs are safe.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns per-day sales summaries between from inclusive and to
// exclusive.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := getFromCache[DailySummary](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.SalesRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns products ordered by units sold, descending.
func (s *Service) TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", limit, offset)
	if rows, ok := getFromCache[TopProduct](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func getFromCache[T any](ctx context.Context, s *Service, key string) ([]T, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}

// Queries is the pgx-backed Querier.
type Queries struct {
	db db.DBTX
}

// NewQueries constructs reporting queries bound to the provided connection.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// SalesRange aggregates committed sales per day.
func (q *Queries) SalesRange(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := q.db.Query(ctx, `
		SELECT date_trunc('day', recorded_at) AS day,
		       count(*) AS sales,
		       coalesce(sum(subtotal), 0),
		       coalesce(sum(discount), 0),
		       coalesce(sum(tax), 0),
		       coalesce(sum(grand_total), 0)
		FROM sales
		WHERE recorded_at >= $1 AND recorded_at < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily sales: %w", err)
	}
	defer rows.Close()
	out := make([]DailySummary, 0)
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Day, &d.Sales, &d.Gross, &d.Discount, &d.Tax, &d.GrandTotal); err != nil {
			return nil, fmt.Errorf("scan daily summary: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan daily summaries: %w", err)
	}
	return out, nil
}

// TopProducts ranks products by units sold.
func (q *Queries) TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error) {
	rows, err := q.db.Query(ctx, `
		SELECT product_id, min(name), coalesce(sum(qty), 0) AS qty_sold, coalesce(sum(line_total), 0)
		FROM sale_items
		GROUP BY product_id
		ORDER BY qty_sold DESC, product_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()
	out := make([]TopProduct, 0)
	for rows.Next() {
		var (
			t  TopProduct
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &t.Name, &t.QtySold, &t.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		t.ProductID = db.FromUUID(id)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan top products: %w", err)
	}
	return out, nil
}
