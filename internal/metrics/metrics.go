package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for simulation activity. All are safe to increment from multiple
// goroutines.
var (
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_ticks_total",
		Help: "Number of simulation ticks run.",
	})
	Advances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_advances_total",
		Help: "Number of single-waypoint bus advances.",
	})
	RouteFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_route_fetch_failures_total",
		Help: "Number of failed or empty route provider fetches.",
	})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_store_errors_total",
		Help: "Number of bus store query or update failures.",
	})
	ConnectedObservers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bus_connected_observers",
		Help: "Number of currently connected realtime observers.",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
