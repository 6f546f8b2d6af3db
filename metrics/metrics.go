package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Queries       *prometheus.CounterVec // outcome label: ok|invalid_station|error
	QueryDuration prometheus.Histogram

	Refreshes     prometheus.Counter
	RefreshErrors prometheus.Counter
	OverlayErrors prometheus.Counter

	SnapshotLoadedAt prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripfinder_queries_total",
			Help: "Total trip queries, by outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripfinder_query_duration_seconds",
			Help:    "Duration of trip queries, including overlay fetch.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripfinder_schedule_refreshes_total",
			Help: "Total successful schedule refreshes.",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripfinder_schedule_refresh_errors_total",
			Help: "Total failed schedule refreshes.",
		}),
		OverlayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripfinder_overlay_fetch_errors_total",
			Help: "Total realtime overlay fetches that failed.",
		}),
		SnapshotLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripfinder_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the current schedule snapshot was published.",
		}),
	}

	reg.MustRegister(
		c.Queries, c.QueryDuration,
		c.Refreshes, c.RefreshErrors, c.OverlayErrors,
		c.SnapshotLoadedAt,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
