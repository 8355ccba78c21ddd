// Package metrics holds the Prometheus collectors for the river service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecomputesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_buffer_recomputes_total",
		Help: "Buffer recomputes by engine",
	}, []string{"engine"})
	RecomputeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_buffer_recompute_errors_total",
		Help: "Buffer recomputes that failed, by engine",
	}, []string{"engine"})
	DegenerateBuffersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "river_buffer_degenerate_total",
		Help: "Buffered outer rings with fewer than 4 coordinates",
	})
	RecomputeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "river_buffer_recompute_duration_ms",
		Help:    "Buffer recompute duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 500},
	}, []string{"engine"})
	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_selections_total",
		Help: "Map clicks by outcome (hit, unnamed or miss)",
	}, []string{"outcome"})
	LayerLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_layer_loads_total",
		Help: "Dataset loads by layer and status",
	}, []string{"layer", "status"})
	EventsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "river_events_dropped_total",
		Help: "Bus events skipped because a subscriber was full, by resource",
	}, []string{"resource"})
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "river_sse_clients",
		Help: "Open Datastar event streams",
	})
)

func init() {
	prometheus.MustRegister(RecomputesTotal)
	prometheus.MustRegister(RecomputeErrorsTotal)
	prometheus.MustRegister(DegenerateBuffersTotal)
	prometheus.MustRegister(RecomputeDurationMs)
	prometheus.MustRegister(SelectionsTotal)
	prometheus.MustRegister(LayerLoadsTotal)
	prometheus.MustRegister(EventsDroppedTotal)
	prometheus.MustRegister(SSEClients)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
