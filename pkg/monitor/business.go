package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds the escrow/ledger/payout counters
type BusinessMetrics struct {
	EscrowCapturedTotal     prometheus.Counter
	EscrowReleasedTotal     *prometheus.CounterVec
	EscrowRefundedTotal     prometheus.Counter
	SweepDuration           prometheus.Histogram
	SweepFailedTotal        prometheus.Counter
	DistributionAmountTotal *prometheus.CounterVec
	LedgerEntriesTotal      *prometheus.CounterVec
	WalletFrozenTotal       prometheus.Counter
	NegativeAdjustmentTotal prometheus.Counter
	PayoutTotal             *prometheus.CounterVec
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics initializes the business metrics
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		EscrowCapturedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_escrow_captured_total",
			Help: "The total number of payments captured into escrow",
		}),
		EscrowReleasedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_escrow_released_total",
			Help: "The total number of escrow releases",
		}, []string{"cause"}), // manual, auto
		EscrowRefundedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_escrow_refunded_total",
			Help: "The total number of escrow refunds",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_auto_release_sweep_duration_seconds",
			Help:    "Duration of auto-release sweep runs",
			Buckets: prometheus.DefBuckets,
		}),
		SweepFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_auto_release_sweep_failed_total",
			Help: "Per-payment failures inside sweep runs",
		}),
		DistributionAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_distribution_amount_total",
			Help: "Distributed amounts by component",
		}, []string{"component"}), // commission, retention, shares, bonus
		LedgerEntriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_wallet_entries_total",
			Help: "Wallet ledger entries appended",
		}, []string{"type"}),
		WalletFrozenTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_wallet_frozen_total",
			Help: "Wallets frozen on reconciliation mismatch",
		}),
		NegativeAdjustmentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_negative_adjustment_total",
			Help: "Adjustment entries that drove a balance negative",
		}),
		PayoutTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_payout_total",
			Help: "Payout requests by terminal outcome",
		}, []string{"outcome"}), // completed, failed, rejected
	}
}
