package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteLinesTotal counts per-line quote outcomes (viable, non_viable, fallback, error).
	QuoteLinesTotal *prometheus.CounterVec
	// QuoteDuration records end-to-end quote latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// RateLookupTotal counts negotiated-rate lookup outcomes (hit, miss, fail_open).
	RateLookupTotal *prometheus.CounterVec
	// TierSelectedTotal counts tier selections by tier name.
	TierSelectedTotal *prometheus.CounterVec
	// AuditWritesTotal counts audit-record persistence outcomes.
	AuditWritesTotal *prometheus.CounterVec
	// RateSweepRevoked counts negotiated rates revoked by the expiry sweep.
	RateSweepRevoked prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_lines_total",
			Help:      "Count of quoted line outcomes.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency of full quote calculations in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		RateLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negotiated_rate_lookup_total",
			Help:      "Count of negotiated-rate lookup outcomes.",
		}, []string{"result"})
		TierSelectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_selected_total",
			Help:      "Count of tier selections by tier name.",
		}, []string{"tier"})
		AuditWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_audit_writes_total",
			Help:      "Count of pricing audit record writes by outcome.",
		}, []string{"result"})
		RateSweepRevoked = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negotiated_rate_sweep_revoked_total",
			Help:      "Negotiated rates revoked by the expiry sweep.",
		})

		mustRegisterCollector(reg, QuoteLinesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteLinesTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, RateLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateLookupTotal = v
			}
		})
		mustRegisterCollector(reg, TierSelectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TierSelectedTotal = v
			}
		})
		mustRegisterCollector(reg, AuditWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AuditWritesTotal = v
			}
		})
		mustRegisterCollector(reg, RateSweepRevoked, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateSweepRevoked = v
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
		panic(fmt.Errorf("register metric: %w", err))
	}
}
