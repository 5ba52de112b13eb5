// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SalesTotal counts sale submissions by outcome: committed, conflict,
	// invalid or failed.
	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hbpos",
		Name:      "sales_total",
		Help:      "Sale submissions by outcome.",
	}, []string{"outcome"})

	SaleAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hbpos",
		Name:      "sale_amount",
		Help:      "Total amount of committed sales.",
		Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
	})

	VouchersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hbpos",
		Name:      "vouchers_issued_total",
		Help:      "Vouchers sold through sales.",
	})

	VouchersRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hbpos",
		Name:      "vouchers_redeemed_total",
		Help:      "Vouchers redeemed as payment.",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hbpos",
		Name:      "jobs_total",
		Help:      "Background jobs by type and result.",
	}, []string{"type", "result"})
)

// Sale outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)
