package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/analytics"
)

type stubQueries struct {
	salesCalls int
	topCalls   int
}

func (s *stubQueries) SalesRange(_ context.Context, from, _ time.Time) ([]analytics.DailySummary, error) {
	s.salesCalls++
	return []analytics.DailySummary{{Day: from, Sales: 2, Gross: 5000, Tax: 500, GrandTotal: 5500}}, nil
}

func (s *stubQueries) TopProducts(context.Context, int32, int32) ([]analytics.TopProduct, error) {
	s.topCalls++
	return nil, nil
}

func TestSalesRangeCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30}
	from := time.Now().Add(-24 * time.Hour).Truncate(24 * time.Hour)
	to := time.Now().Truncate(24 * time.Hour)
	if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.salesCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.salesCalls)
	}
}

func TestSalesRangeWithoutCacheHitsStoreEachTime(t *testing.T) {
	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries}
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if queries.salesCalls != 3 {
		t.Fatalf("expected 3 DB calls, got %d", queries.salesCalls)
	}
}

func TestTopProductsDefaultsLimit(t *testing.T) {
	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries}
	if _, err := svc.TopProducts(context.Background(), 0, -5); err != nil {
		t.Fatalf("top products: %v", err)
	}
	if queries.topCalls != 1 {
		t.Fatalf("expected 1 call, got %d", queries.topCalls)
	}
}
