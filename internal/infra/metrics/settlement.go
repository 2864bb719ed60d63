package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		pendingSettlement,
		pendingSettlementTotal,
		snapshotRunsTotal,
	)
}

var (
	pendingSettlement = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbit_pending_settlement_codes",
			Help: "Redeemed but unsettled codes per distributor, as of the last snapshot.",
		},
		[]string{"distributor"},
	)

	pendingSettlementTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbit_pending_settlement_codes_total",
			Help: "Redeemed but unsettled distributor codes, as of the last snapshot.",
		},
	)

	snapshotRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_settlement_snapshot_runs_total",
			Help: "Settlement snapshot job runs by status.",
		},
		[]string{"status"}, // 'ok', 'error', 'skipped'
	)
)

// SetPendingSettlement replaces the per-distributor gauges with pending.
func SetPendingSettlement(pending map[string]int64) {
	pendingSettlement.Reset()
	var total int64
	for id, n := range pending {
		pendingSettlement.WithLabelValues(id).Set(float64(n))
		total += n
	}
	pendingSettlementTotal.Set(float64(total))
}

func IncSnapshotRun(status string) {
	snapshotRunsTotal.WithLabelValues(norm(status)).Inc()
}
