package common

import "github.com/prometheus/client_golang/prometheus"

const (
	LockupFailuresTotal        = "swapd_lockup_failures_total"
	ExpiredSwapsTotal          = "swapd_expired_swaps_total"
	MissedBlockHeightsTotal    = "swapd_missed_block_heights_total"
	ReconcileRetriesTotal      = "swapd_reconcile_retries_total"
	SwapOutcomesTotal          = "swapd_swap_outcomes_total"
	LatestBlockHeight          = "swapd_latest_block_height"
	BlockProcessingDurationSec = "swapd_block_processing_duration_seconds"
)

var (
	PromGauges = map[string]*prometheus.GaugeVec{
		LatestBlockHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: LatestBlockHeight,
			Help: "Latest block height processed by a chain watcher",
		}, []string{"chain"}),
	}

	PromCounters = map[string]*prometheus.CounterVec{
		LockupFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LockupFailuresTotal,
			Help: "Count of lockups which failed validation",
		}, []string{"chain", "code"}),
		ExpiredSwapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ExpiredSwapsTotal,
			Help: "Count of swaps and reverse swaps expired by a chain watcher",
		}, []string{"chain", "kind"}),
		MissedBlockHeightsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MissedBlockHeightsTotal,
			Help: "Count of block heights whose expiry scan failed",
		}, []string{"chain"}),
		ReconcileRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ReconcileRetriesTotal,
			Help: "Count of failed fetches of pending reverse swap transactions",
		}, []string{"chain"}),
		SwapOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SwapOutcomesTotal,
			Help: "Count of terminal swap outcomes",
		}, []string{"outcome", "kind"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		BlockProcessingDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: BlockProcessingDurationSec,
			Help: "Duration of the expiry scan of a block height",
		}, []string{"chain"}),
	}
)

func SwapKind(isReverse bool) string {
	if isReverse {
		return "reverse"
	}

	return "submarine"
}
