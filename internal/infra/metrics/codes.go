package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesGeneratedTotal,
		batchGenerateSeconds,
		redemptionsTotal,
		revocationsTotal,
		settlementsTotal,
	)
}

var (
	codesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_codes_generated_total",
			Help: "Codes minted, by code type and owner kind.",
		},
		[]string{"type", "owner"},
	)

	batchGenerateSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbit_batch_generate_seconds",
			Help:    "Batch generation latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"result"}, // 'ok', 'error'
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_redemptions_total",
			Help: "Redemption attempts by outcome code.",
		},
		[]string{"result"}, // 'ok', 'replayed', or a domain error code
	)

	revocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_revocations_total",
			Help: "Revocation attempts by outcome code.",
		},
		[]string{"result"},
	)

	settlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_codes_settled_total",
			Help: "Codes marked as settled.",
		},
	)
)

func ObserveBatch(codeType, ownerKind string, count int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		codesGeneratedTotal.WithLabelValues(norm(codeType), norm(ownerKind)).Add(float64(count))
	}
	batchGenerateSeconds.WithLabelValues(result).Observe(elapsed.Seconds())
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRevocation(result string) {
	revocationsTotal.WithLabelValues(norm(result)).Inc()
}

func AddSettled(n int) {
	settlementsTotal.Add(float64(n))
}
