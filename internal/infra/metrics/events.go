package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(eventsPublishedTotal) }

var eventsPublishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orbit_events_published_total",
		Help: "Domain events handed to the broker, by routing key and status.",
	},
	[]string{"event", "status"}, // status: 'ok', 'error', 'dropped'
)

func IncEvent(event, status string) {
	eventsPublishedTotal.WithLabelValues(norm(event), norm(status)).Inc()
}
