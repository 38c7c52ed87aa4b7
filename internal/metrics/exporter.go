package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/model"
)

// Exporter serves crawl metrics in Prometheus exposition format on
// /metrics.
//
// Design decision: Collectors read the live Counters at scrape time
// (CounterFunc/GaugeFunc) instead of pushing deltas on a timer. Pull
// matches the Prometheus model and means there is no updater goroutine
// to keep in sync with the scrape interval.
type Exporter struct {
	srv *http.Server
	reg *prometheus.Registry
}

// NewExporter builds an Exporter listening on addr. store may be nil;
// the frontier backlog gauge is then omitted.
func NewExporter(counters *Counters, store frontier.Store, addr string) *Exporter {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "crawld_pages_total",
		Help: "Total number of fetch attempts.",
	}, func() float64 {
		return float64(counters.Snapshot().Pages)
	}))
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "crawld_errors_total",
		Help: "Total number of failed fetch attempts.",
	}, func() float64 {
		return float64(counters.Snapshot().Errors)
	}))
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "crawld_skipped_total",
		Help: "Total number of leased URLs skipped without fetching.",
	}, func() float64 {
		return float64(counters.Snapshot().Skipped)
	}))
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "crawld_bytes_total",
		Help: "Total body bytes downloaded.",
	}, func() float64 {
		return float64(counters.Snapshot().Bytes)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "crawld_pages_per_second",
		Help: "Fetch rate over the crawl lifetime.",
	}, func() float64 {
		return counters.Snapshot().PagesPerSec
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "crawld_avg_fetch_duration_seconds",
		Help: "Mean HTTP exchange duration.",
	}, func() float64 {
		return counters.Snapshot().AvgFetch.Seconds()
	}))

	if store != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "crawld_frontier_pending",
			Help: "URLs discovered but not yet crawled.",
		}, func() float64 {
			counts, err := store.CountByState(context.Background())
			if err != nil {
				return 0
			}
			return float64(counts[model.StatePending])
		}))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Exporter{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		reg: reg,
	}
}

// Handler returns the /metrics handler for serving through an existing
// mux. Useful in tests.
func (e *Exporter) Handler() http.Handler {
	return e.srv.Handler
}

// Start serves metrics until Shutdown is called. It blocks; run it in
// its own goroutine.
func (e *Exporter) Start() error {
	err := e.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the metrics server.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}
