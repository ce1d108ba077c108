package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics groups the collectors recorded by the pricing service.
type PricingMetrics struct {
	// MatrixRuns counts matrix computations by mode and outcome.
	MatrixRuns *prometheus.CounterVec
	// MatrixDuration records matrix computation latency in milliseconds.
	MatrixDuration *prometheus.HistogramVec
	// CellFailures counts failed or skipped cells by error code.
	CellFailures *prometheus.CounterVec
	// Previews counts single-price previews by price kind and cell status.
	Previews *prometheus.CounterVec
	// SnapshotCache counts snapshot cache lookups by result.
	SnapshotCache *prometheus.CounterVec
}

var (
	domainOnce sync.Once
	pricing    *PricingMetrics
)

// MustRegisterDomainMetrics initialises and registers the pricing collectors once per
// process and returns them.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	domainOnce.Do(func() {
		pricing = NewPricingMetrics(namespace, reg)
	})
	return pricing
}

// NewPricingMetrics registers a fresh set of pricing collectors on reg. Collectors that
// are already registered are reused.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PricingMetrics{
		MatrixRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_matrix_runs_total",
			Help:      "Count of pricing matrix computations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		MatrixDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_matrix_duration_ms",
			Help:      "Pricing matrix computation latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"mode"}),
		CellFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_cell_failures_total",
			Help:      "Count of matrix cells that failed or were not computed, by error code.",
		}, []string{"code"}),
		Previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_preview_total",
			Help:      "Count of single-price previews by price kind and status.",
		}, []string{"kind", "status"}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_snapshot_cache_total",
			Help:      "Count of hotel snapshot cache lookups by result.",
		}, []string{"result"}),
	}

	mustRegisterCollector(reg, m.MatrixRuns, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.MatrixRuns = v
		}
	})
	mustRegisterCollector(reg, m.MatrixDuration, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.MatrixDuration = v
		}
	})
	mustRegisterCollector(reg, m.CellFailures, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.CellFailures = v
		}
	})
	mustRegisterCollector(reg, m.Previews, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Previews = v
		}
	})
	mustRegisterCollector(reg, m.SnapshotCache, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.SnapshotCache = v
		}
	})
	return m
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
