package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesCommittedTotal counts sale commit outcomes by result.
	SalesCommittedTotal *prometheus.CounterVec
	// SaleTotalAmount records committed sale grand totals in minor units.
	SaleTotalAmount prometheus.Histogram
	// ScanResolveTotal counts scan resolution outcomes.
	ScanResolveTotal *prometheus.CounterVec
	// StockDecrementConflicts counts decrements rejected for insufficient stock.
	StockDecrementConflicts prometheus.Counter
	// ScanFeedDropped counts decode results dropped because the feed buffer was full.
	ScanFeedDropped prometheus.Counter
	// CartMutationsTotal counts cart engine mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesCommittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_commits_total",
			Help:      "Count of sale commit attempts by outcome.",
		}, []string{"result"})
		SaleTotalAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_grand_total_minor_units",
			Help:      "Distribution of committed sale grand totals in minor units.",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		ScanResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_resolve_total",
			Help:      "Count of scan resolution outcomes.",
		}, []string{"result"})
		StockDecrementConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_decrement_conflicts_total",
			Help:      "Number of stock decrements rejected for insufficient stock.",
		})
		ScanFeedDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_feed_dropped_total",
			Help:      "Decode results dropped because the scan feed buffer was full.",
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart engine mutations by operation.",
		}, []string{"op"})

		mustRegisterCollector(reg, SalesCommittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCommittedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleTotalAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleTotalAmount = v
			}
		})
		mustRegisterCollector(reg, ScanResolveTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ScanResolveTotal = v
			}
		})
		mustRegisterCollector(reg, StockDecrementConflicts, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockDecrementConflicts = v
			}
		})
		mustRegisterCollector(reg, ScanFeedDropped, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ScanFeedDropped = v
			}
		})
		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
